package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsStorageSnapshot(t *testing.T) {
	s := NewStats()
	s.RecordStorageOperation("redis", "fetch_all", 2*time.Millisecond, nil)
	s.RecordStorageOperation("redis", "fetch_all", 4*time.Millisecond, errors.New("boom"))

	snap := s.StorageSnapshot()
	require.Contains(t, snap, "redis")
	op := snap["redis"]["fetch_all"]
	assert.Equal(t, int64(2), op.Count)
	assert.Equal(t, int64(1), op.Errors)
	assert.InDelta(t, 2.0, op.P50Millis, 0.01)
	assert.InDelta(t, 4.0, op.P95Millis, 0.01)
}

func TestStatsCaptureLastError(t *testing.T) {
	s := NewStats()
	s.RecordCapture("cam-a", "rtsp", time.Millisecond, errors.New("no frame"), "frame_unavailable")
	snap := s.CaptureSnapshot()
	assert.Equal(t, "no frame", snap["cam-a"].LastError)

	s.RecordCapture("cam-a", "rtsp", time.Millisecond, nil, "")
	snap = s.CaptureSnapshot()
	assert.Empty(t, snap["cam-a"].LastError)
	assert.Equal(t, int64(2), snap["cam-a"].Count)

	s.Forget("cam-a")
	assert.Empty(t, s.CaptureSnapshot())
}

func TestPercentileBounds(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 0.5))
	assert.Equal(t, 3.0, percentile([]float64{1, 2, 3}, 1.0))
	assert.Equal(t, 1.0, percentile([]float64{1, 2, 3}, 0))
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", ResultLabel(nil, "x"))
	assert.Equal(t, "error", ResultLabel(errors.New("e"), ""))
	assert.Equal(t, "unauthorized", ResultLabel(errors.New("e"), "unauthorized"))
}
