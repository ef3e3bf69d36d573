package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileBackendContract(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	require.NoError(t, backend.Initialize(context.Background()))
	runBackendContract(t, backend)
}

func TestFileBackendReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend := NewFileBackend(dir)
	require.NoError(t, backend.Initialize(ctx))
	cfg := sampleCamera("porch", time.Now())
	require.NoError(t, backend.Insert(ctx, cfg))
	require.NoError(t, backend.Close())

	// junk next to real entries is skipped
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cameras", "broken.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cameras", "notes.txt"), []byte("x"), 0o600))

	reopened := NewFileBackend(dir)
	require.NoError(t, reopened.Initialize(ctx))
	all, err := reopened.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, cfg.ID, all[0].ID)
}

func TestFileBackendPathStaysInDir(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	p := backend.path("../../etc/passwd")
	require.Equal(t, backend.dir(), filepath.Dir(p))
}
