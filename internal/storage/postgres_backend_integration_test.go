package storage

import (
	"context"
	"fmt"
	"testing"

	"camgate-go/internal/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresBackend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "itdb",
				"POSTGRES_USER":     "ituser",
				"POSTGRES_PASSWORD": "itpass",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://ituser:itpass@%s:%s/itdb?sslmode=disable", host, port.Port())
	backend, err := NewPostgresBackend(dsn)
	require.NoError(t, err)
	require.NoError(t, backend.Initialize(ctx))
	t.Cleanup(func() {
		_ = backend.Close()
	})

	// Initialize is idempotent
	require.NoError(t, backend.Initialize(ctx))

	t.Run("camera CRUD", func(t *testing.T) {
		runBackendContract(t, backend)
	})

	t.Run("migration version", func(t *testing.T) {
		latest, err := migrations.Latest()
		require.NoError(t, err)
		schema, err := migrations.OpenPostgres(dsn)
		require.NoError(t, err)
		defer schema.Close()
		v, dirty, err := schema.Version()
		require.NoError(t, err)
		require.False(t, dirty)
		require.Equal(t, latest, v)
	})
}
