package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/logging"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring"
	"camgate-go/internal/runtime"
	log "github.com/sirupsen/logrus"
)

// TaskName is the runtime task the polling loop is registered under.
const TaskName = "camera-monitor"

// Source supplies the camera list and performs captures. camera.Manager
// satisfies it.
type Source interface {
	Cameras() []models.CameraConfig
	CaptureFrame(ctx context.Context, cfg models.CameraConfig) (*frame.Frame, error)
}

// FrameHandler receives every successfully captured frame. Calls are
// sequential within the loop.
type FrameHandler func(cam models.CameraConfig, f *frame.Frame)

// CameraStatus is the outcome of the latest capture attempt for a camera.
type CameraStatus struct {
	CameraID    string    `json:"camera_id"`
	Name        string    `json:"name"`
	Provider    string    `json:"provider"`
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Guidance    string    `json:"guidance,omitempty"`
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Running     bool           `json:"running"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	IntervalSec float64        `json:"interval_sec"`
	Rounds      int64          `json:"rounds"`
	LastRoundAt time.Time      `json:"last_round_at,omitempty"`
	Cameras     []CameraStatus `json:"cameras"`
}

// Monitor runs one background loop that captures every camera in turn,
// hands frames to a callback and swallows per-camera errors.
type Monitor struct {
	tasks *runtime.TaskManager

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	mu          sync.Mutex
	interval    time.Duration
	rounds      int64
	lastRoundAt time.Time
	status      map[string]*CameraStatus
	order       []string
}

// New creates a monitor whose loop runs on tasks. A nil TaskManager gets a
// private one.
func New(tasks *runtime.TaskManager) *Monitor {
	if tasks == nil {
		tasks = runtime.NewTaskManager(context.Background())
	}
	return &Monitor{tasks: tasks, status: make(map[string]*CameraStatus)}
}

// Start replaces any running loop with a new one polling every interval.
// It waits for a capture in flight on the old loop to finish first. A
// non-positive interval does nothing.
func (m *Monitor) Start(interval time.Duration, source Source, onFrame FrameHandler) {
	if interval <= 0 || source == nil {
		log.WithFields(log.Fields{"component": "monitor", "interval": interval}).Debug("monitor start ignored")
		return
	}
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	// the previous loop must exit before the next one runs, so onFrame is
	// never called from two loops at once
	<-m.stop()

	m.mu.Lock()
	m.interval = interval
	m.mu.Unlock()

	if err := m.tasks.Start(TaskName, fmt.Sprintf("capture all cameras every %s", interval), m.loop(interval, source, onFrame)); err != nil {
		log.WithFields(log.Fields{"component": "monitor", "error": err}).Error("camera monitor start failed")
		return
	}
	log.WithFields(log.Fields{"component": "monitor", "interval": interval.String()}).Info("camera monitor started")
}

// Stop cancels the loop. A capture already in flight finishes, but no
// further capture starts. Safe to call at any time.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stop()
}

// StopWait stops the loop and waits up to d for it to exit.
func (m *Monitor) StopWait(d time.Duration) bool {
	m.lifecycle.Lock()
	done := m.stop()
	m.lifecycle.Unlock()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func (m *Monitor) stop() <-chan struct{} {
	wasRunning := m.tasks.IsRunning(TaskName)
	done := m.tasks.Remove(TaskName)
	if wasRunning {
		log.WithField("component", "monitor").Info("camera monitor stopped")
	}
	return done
}

// IsMonitoring reports whether the loop is active.
func (m *Monitor) IsMonitoring() bool {
	return m.tasks.IsRunning(TaskName)
}

// Status returns the loop state and the last result per camera.
func (m *Monitor) Status() Status {
	running := m.IsMonitoring()
	var started time.Time
	if task, err := m.tasks.GetTask(TaskName); err == nil && running {
		started = task.StartTime
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		Running:     running,
		StartedAt:   started,
		IntervalSec: m.interval.Seconds(),
		Rounds:      m.rounds,
		LastRoundAt: m.lastRoundAt,
		Cameras:     make([]CameraStatus, 0, len(m.order)),
	}
	for _, id := range m.order {
		if cs, ok := m.status[id]; ok {
			st.Cameras = append(st.Cameras, *cs)
		}
	}
	return st
}

func (m *Monitor) loop(interval time.Duration, source Source, onFrame FrameHandler) runtime.TaskFunc {
	return func(ctx context.Context) error {
		monitoring.MonitorRunning.Inc()
		defer monitoring.MonitorRunning.Dec()

		for {
			m.round(ctx, source, onFrame)

			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// round captures each camera of one list snapshot, in order.
func (m *Monitor) round(ctx context.Context, source Source, onFrame FrameHandler) {
	cams := source.Cameras()
	m.beginRound(cams)
	start := time.Now()

	// in-flight captures outlive Stop; only the next one is prevented
	captureCtx := context.WithoutCancel(ctx)
	for _, cam := range cams {
		if ctx.Err() != nil {
			return
		}
		f, err := source.CaptureFrame(captureCtx, cam)
		m.recordResult(cam, err)
		if err != nil {
			logging.WithCamera("monitor", cam).WithFields(log.Fields{
				"error_kind": logging.ErrorKind(err),
				"error":      err,
			}).Warn("capture failed")
			continue
		}
		m.deliver(onFrame, cam, f)
	}

	monitoring.MonitorTickDuration.Observe(time.Since(start).Seconds())
	m.mu.Lock()
	m.rounds++
	m.lastRoundAt = time.Now()
	m.mu.Unlock()
}

func (m *Monitor) deliver(onFrame FrameHandler, cam models.CameraConfig, f *frame.Frame) {
	if onFrame == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.WithCamera("monitor", cam).WithField("panic", r).Error("frame handler panicked")
		}
	}()
	onFrame(cam, f)
}

func (m *Monitor) beginRound(cams []models.CameraConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := make([]string, 0, len(cams))
	seen := make(map[string]struct{}, len(cams))
	for _, c := range cams {
		order = append(order, c.ID)
		seen[c.ID] = struct{}{}
		if _, ok := m.status[c.ID]; !ok {
			m.status[c.ID] = &CameraStatus{CameraID: c.ID}
		}
	}
	for id := range m.status {
		if _, ok := seen[id]; !ok {
			delete(m.status, id)
		}
	}
	m.order = order
}

func (m *Monitor) recordResult(cam models.CameraConfig, err error) {
	kind := logging.ErrorKind(err)
	monitoring.MonitorCapturesTotal.WithLabelValues(monitoring.ResultLabel(err, kind)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.status[cam.ID]
	if !ok {
		cs = &CameraStatus{CameraID: cam.ID}
		m.status[cam.ID] = cs
	}
	now := time.Now()
	cs.Name = cam.Name
	cs.Provider = string(cam.Kind)
	cs.LastAttempt = now
	if err == nil {
		cs.LastSuccess = now
		cs.LastError, cs.ErrorKind, cs.Guidance = "", "", ""
		return
	}
	cs.LastError = err.Error()
	cs.ErrorKind = kind
	cs.Guidance = apperrors.Guidance(apperrors.KindOf(err))
}
