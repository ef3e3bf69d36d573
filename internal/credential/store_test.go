package credential

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func init() {
	scryptN = 1 << 10
}

// exerciseStore runs the shared get/set/delete contract against a Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "cam-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "cam-1", "hunter2"))
	v, ok, err := s.Get(ctx, "cam-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hunter2", v)

	require.NoError(t, s.Set(ctx, "cam-1", "rotated"))
	v, _, _ = s.Get(ctx, "cam-1")
	require.Equal(t, "rotated", v)

	require.NoError(t, s.Delete(ctx, "cam-1"))
	_, ok, err = s.Get(ctx, "cam-1")
	require.NoError(t, err)
	require.False(t, ok)

	// deleting a missing key is not an error
	require.NoError(t, s.Delete(ctx, "cam-1"))

	_, _, err = s.Get(ctx, "  ")
	require.ErrorIs(t, err, ErrEmptyKey)
	require.ErrorIs(t, s.Set(ctx, "", "x"), ErrEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(""))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	fs, err := NewFileStore(path, "correct horse", DefaultNamespace)
	require.NoError(t, err)
	exerciseStore(t, fs)
}

func TestFileStorePersistsEncrypted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "secrets.json")

	fs, err := NewFileStore(path, "correct horse", DefaultNamespace)
	require.NoError(t, err)
	require.NoError(t, fs.Set(ctx, "porch", "tok-123"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "tok-123"), "secret must not be stored in clear text")

	reopened, err := NewFileStore(path, "correct horse", DefaultNamespace)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "porch")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-123", v)

	_, err = NewFileStore(path, "wrong", DefaultNamespace)
	require.ErrorIs(t, err, ErrBadPassphrase)
}

func TestFileStoreRequiresPassphrase(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "s.json"), "", "")
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(mr.Close)

	rs, err := NewRedisStore(context.Background(), RedisStoreConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	exerciseStore(t, rs)

	require.NoError(t, rs.Set(context.Background(), "abc", "v"))
	require.True(t, mr.Exists("camgate:secret:camera.abc"))
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(mr.Close)

	cams, err := NewRedisStore(ctx, RedisStoreConfig{Addr: mr.Addr(), Namespace: "camera"})
	require.NoError(t, err)
	other, err := NewRedisStore(ctx, RedisStoreConfig{Addr: mr.Addr(), Namespace: "weather"})
	require.NoError(t, err)

	require.NoError(t, cams.Set(ctx, "k", "camera-secret"))
	_, ok, err := other.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveTreatsBlankAsMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	require.NoError(t, s.Set(ctx, "blank", ""))
	_, ok := Resolve(ctx, s, "blank")
	require.False(t, ok)
	_, ok = Resolve(ctx, nil, "blank")
	require.False(t, ok)
}
