package storage

import (
	"context"
	"testing"
	"time"

	"camgate-go/internal/models"
	"github.com/stretchr/testify/require"
)

func sampleCamera(name string, created time.Time) models.CameraConfig {
	cfg := models.NewCameraConfig(name, models.KindRTSP)
	cfg.CreatedAt = created.UTC().Truncate(time.Millisecond)
	cfg.UpdatedAt = cfg.CreatedAt
	cfg.StreamURL = "rtsp://10.0.0.5:554/stream1"
	return cfg
}

// runBackendContract exercises the behavior every Backend must share.
func runBackendContract(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	all, err := backend.FetchAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	first := sampleCamera("porch", base)
	second := sampleCamera("garage", base.Add(time.Minute))
	require.NoError(t, backend.Insert(ctx, second))
	require.NoError(t, backend.Insert(ctx, first))

	err = backend.Insert(ctx, first)
	require.True(t, IsAlreadyExists(err), "duplicate insert must fail, got %v", err)

	all, err = backend.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, first.ID, all[0].ID, "ordered by creation time")
	require.Equal(t, second.ID, all[1].ID)
	require.Equal(t, "rtsp://10.0.0.5:554/stream1", all[0].StreamURL)
	require.Equal(t, models.KindRTSP, all[0].Kind)

	first.Name = "front porch"
	first.Touch()
	require.NoError(t, backend.Save(ctx, first))
	all, err = backend.FetchAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "front porch", all[0].Name)

	ghost := sampleCamera("ghost", base)
	require.True(t, IsNotFound(backend.Save(ctx, ghost)))

	require.NoError(t, backend.Delete(ctx, first.ID))
	require.NoError(t, backend.Delete(ctx, first.ID), "delete of missing id is not an error")
	all, err = backend.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, second.ID, all[0].ID)

	require.Error(t, backend.Insert(ctx, models.CameraConfig{}))
	require.NoError(t, backend.Health(ctx))
}
