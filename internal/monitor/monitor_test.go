package monitor

import (
	"context"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"camgate-go/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	cams    []models.CameraConfig
	failing map[string]bool
	calls   []string
	block   chan struct{} // when set, captures wait on it
}

func (s *fakeSource) Cameras() []models.CameraConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CameraConfig(nil), s.cams...)
}

func (s *fakeSource) CaptureFrame(ctx context.Context, cfg models.CameraConfig) (*frame.Frame, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cfg.Name)
	fail := s.failing[cfg.Name]
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if fail {
		return nil, apperrors.New(apperrors.KindConnectionFailed, "fake", "camera offline")
	}
	return frame.Decode(frame.SolidPNG(1, 1, color.White))
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func cams(names ...string) []models.CameraConfig {
	out := make([]models.CameraConfig, 0, len(names))
	for _, n := range names {
		out = append(out, models.NewCameraConfig(n, models.KindRTSP))
	}
	return out
}

func TestRoundIsolatesFailingCamera(t *testing.T) {
	src := &fakeSource{cams: cams("A", "B", "C"), failing: map[string]bool{"B": true}}
	m := New(nil)

	var got []string
	m.round(context.Background(), src, func(cam models.CameraConfig, f *frame.Frame) {
		require.NotNil(t, f)
		got = append(got, cam.Name)
	})

	assert.Equal(t, []string{"A", "C"}, got)
	assert.Equal(t, []string{"A", "B", "C"}, src.calls)

	st := m.Status()
	require.Len(t, st.Cameras, 3)
	assert.Empty(t, st.Cameras[0].LastError)
	assert.Equal(t, string(apperrors.KindConnectionFailed), st.Cameras[1].ErrorKind)
	assert.Equal(t, "retry", st.Cameras[1].Guidance)
	assert.EqualValues(t, 1, st.Rounds)
}

func TestFrameHandlerPanicDoesNotStopRound(t *testing.T) {
	src := &fakeSource{cams: cams("A", "B")}
	m := New(nil)
	var got []string
	m.round(context.Background(), src, func(cam models.CameraConfig, _ *frame.Frame) {
		if cam.Name == "A" {
			panic("boom")
		}
		got = append(got, cam.Name)
	})
	assert.Equal(t, []string{"B"}, got)
}

func TestStartZeroIntervalIsNoop(t *testing.T) {
	tasks := runtime.NewTaskManager(context.Background())
	m := New(tasks)
	src := &fakeSource{cams: cams("A")}

	m.Start(0, src, nil)
	m.Start(-time.Second, src, nil)
	assert.False(t, m.IsMonitoring())
	assert.Empty(t, tasks.ListTasks())
	assert.Zero(t, src.callCount())
}

func TestStopBeforeStartAndRestart(t *testing.T) {
	m := New(nil)
	m.Stop()
	m.Stop()
	assert.False(t, m.IsMonitoring())

	src := &fakeSource{cams: cams("A")}
	frames := make(chan string, 16)
	onFrame := func(cam models.CameraConfig, _ *frame.Frame) {
		select {
		case frames <- cam.Name:
		default:
		}
	}

	m.Start(10*time.Millisecond, src, onFrame)
	require.True(t, m.IsMonitoring())
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	// restarting replaces the loop rather than adding a second one
	m.Start(10*time.Millisecond, src, onFrame)
	require.True(t, m.IsMonitoring())
	assert.Len(t, m.tasks.ListTasks(), 1)

	require.True(t, m.StopWait(2*time.Second))
	assert.False(t, m.IsMonitoring())
	m.Stop()

	m.Start(10*time.Millisecond, src, onFrame)
	assert.True(t, m.IsMonitoring())
	require.True(t, m.StopWait(2*time.Second))
}

func TestStopDoesNotAbortInFlightCapture(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{cams: cams("A", "B"), block: release}
	delivered := make(chan string, 4)
	m := New(nil)
	m.Start(time.Hour, src, func(cam models.CameraConfig, _ *frame.Frame) { delivered <- cam.Name })

	require.Eventually(t, func() bool { return src.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()
	assert.False(t, m.IsMonitoring())
	close(release)

	select {
	case name := <-delivered:
		assert.Equal(t, "A", name, "the in-flight capture completes")
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight capture was aborted")
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, src.callCount(), "no capture starts after stop")
}

func TestStatusDropsRemovedCameras(t *testing.T) {
	src := &fakeSource{cams: cams("A", "B")}
	m := New(nil)
	m.round(context.Background(), src, nil)
	require.Len(t, m.Status().Cameras, 2)

	src.mu.Lock()
	src.cams = src.cams[:1]
	src.mu.Unlock()
	m.round(context.Background(), src, nil)
	st := m.Status()
	require.Len(t, st.Cameras, 1)
	assert.Equal(t, "A", st.Cameras[0].Name)
}

// slowSource tracks how many captures and frame callbacks overlap.
type slowSource struct {
	delay    time.Duration
	captures atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowSource) Cameras() []models.CameraConfig { return cams("A") }

func (s *slowSource) CaptureFrame(context.Context, models.CameraConfig) (*frame.Frame, error) {
	s.captures.Add(1)
	trackPeak(&s.inFlight, &s.peak, func() { time.Sleep(s.delay) })
	return frame.Decode(frame.SolidPNG(1, 1, color.White))
}

func trackPeak(cur, peak *atomic.Int32, fn func()) {
	n := cur.Add(1)
	defer cur.Add(-1)
	for {
		p := peak.Load()
		if n <= p || peak.CompareAndSwap(p, n) {
			break
		}
	}
	fn()
}

func TestRestartDuringSlowCaptureKeepsOneLoop(t *testing.T) {
	src := &slowSource{delay: 100 * time.Millisecond}
	var handling, handlerPeak atomic.Int32
	onFrame := func(models.CameraConfig, *frame.Frame) {
		trackPeak(&handling, &handlerPeak, func() { time.Sleep(20 * time.Millisecond) })
	}

	m := New(nil)
	m.Start(time.Hour, src, onFrame)
	require.Eventually(t, func() bool { return src.captures.Load() == 1 }, time.Second, 2*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	m.Start(time.Hour, src, onFrame)
	require.True(t, m.IsMonitoring())
	require.Eventually(t, func() bool { return src.captures.Load() == 2 }, time.Second, 2*time.Millisecond)
	require.True(t, m.StopWait(2*time.Second))

	assert.EqualValues(t, 1, src.peak.Load(), "captures from the old and new loop overlapped")
	assert.EqualValues(t, 1, handlerPeak.Load(), "frame callbacks overlapped")
}

func TestStatusReportsStartTime(t *testing.T) {
	src := &fakeSource{cams: cams("A")}
	m := New(nil)
	assert.True(t, m.Status().StartedAt.IsZero())

	before := time.Now()
	m.Start(time.Hour, src, nil)
	st := m.Status()
	assert.True(t, st.Running)
	assert.False(t, st.StartedAt.Before(before))

	require.True(t, m.StopWait(2*time.Second))
	assert.True(t, m.Status().StartedAt.IsZero())
}
