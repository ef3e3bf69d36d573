package storage

import (
	"context"
	"testing"
	"time"

	"camgate-go/internal/monitoring"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedBackendRecordsOperations(t *testing.T) {
	ctx := context.Background()
	inner := NewFileBackend(t.TempDir())
	require.NoError(t, inner.Initialize(ctx))

	stats := monitoring.NewStats()
	backend := WithInstrumentation(inner, stats, "file")

	cfg := sampleCamera("porch", time.Now())
	require.NoError(t, backend.Insert(ctx, cfg))
	require.Error(t, backend.Insert(ctx, cfg))
	_, err := backend.FetchAll(ctx)
	require.NoError(t, err)

	snap := stats.StorageSnapshot()["file"]
	require.Equal(t, int64(2), snap["insert"].Count)
	require.Equal(t, int64(1), snap["insert"].Errors)
	require.Equal(t, int64(1), snap["fetch_all"].Count)

	unwrapped, ok := backend.(interface{ Unwrap() Backend })
	require.True(t, ok)
	require.Same(t, inner, unwrapped.Unwrap())
}

func TestWithInstrumentationNil(t *testing.T) {
	require.Nil(t, WithInstrumentation(nil, nil, ""))
}

func TestOptionsLabel(t *testing.T) {
	require.Equal(t, "file", Options{}.Label())
	require.Equal(t, "redis", Options{RedisAddr: "x"}.Label())
	require.Equal(t, "postgres", Options{Backend: "auto", PostgresDSN: "dsn"}.Label())
	require.Equal(t, "mongodb", Options{Backend: "Mongo"}.Label())
}

func TestOpenFileBackend(t *testing.T) {
	backend, err := Open(context.Background(), Options{Backend: "file", BaseDir: t.TempDir()}, monitoring.NewStats())
	require.NoError(t, err)
	require.NoError(t, backend.Health(context.Background()))

	_, err = Open(context.Background(), Options{Backend: "etcd"}, nil)
	require.Error(t, err)
}
