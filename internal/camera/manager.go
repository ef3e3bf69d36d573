package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"camgate-go/internal/credential"
	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/events"
	"camgate-go/internal/frame"
	"camgate-go/internal/logging"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring"
	"camgate-go/internal/monitoring/tracing"
	"camgate-go/internal/provider"
	"camgate-go/internal/storage"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ProviderFactory builds a provider for a camera config.
type ProviderFactory interface {
	New(ctx context.Context, cfg models.CameraConfig) (provider.Provider, error)
}

// Change actions published on events.TopicCameraChanged.
const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionLoaded  = "loaded"
)

// ChangeEvent is the payload of a camera.changed event.
type ChangeEvent struct {
	Action string              `json:"action"`
	Camera models.CameraConfig `json:"camera"`
	Count  int                 `json:"count,omitempty"`
}

// Manager owns the in-memory camera list and keeps it in step with the
// persistence backend and the secret store. Mutations are serialized.
//
// Persistence failures are returned and also kept in LastError so that a
// caller which does not check every return still sees them.
type Manager struct {
	opMu sync.Mutex

	store   storage.Backend
	secrets credential.Store
	factory ProviderFactory
	events  events.Publisher
	stats   *monitoring.Stats

	mu      sync.RWMutex
	cameras []models.CameraConfig
	lastErr error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithEvents publishes camera.changed events to p.
func WithEvents(p events.Publisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithStats records capture outcomes into s.
func WithStats(s *monitoring.Stats) Option {
	return func(m *Manager) { m.stats = s }
}

// NewManager wires a manager. Call LoadConfigs to populate it.
func NewManager(store storage.Backend, secrets credential.Store, factory ProviderFactory, opts ...Option) *Manager {
	m := &Manager{store: store, secrets: secrets, factory: factory}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LastError is the most recent persistence or secret-store failure, nil
// after the next successful mutation or load.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) record(err error) error {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	return err
}

// Cameras returns a copy of the current list.
func (m *Manager) Cameras() []models.CameraConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CameraConfig, len(m.cameras))
	copy(out, m.cameras)
	return out
}

// Camera looks up one camera by id.
func (m *Manager) Camera(id string) (models.CameraConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cameras {
		if c.ID == id {
			return c, true
		}
	}
	return models.CameraConfig{}, false
}

// LoadConfigs replaces the in-memory list with what persistence holds.
func (m *Manager) LoadConfigs(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	list, err := m.store.FetchAll(ctx)
	if err != nil {
		log.WithFields(log.Fields{"component": "camera", "error": err}).Warn("load camera configs failed")
		return m.record(fmt.Errorf("load cameras: %w", err))
	}
	m.mu.Lock()
	m.cameras = list
	m.lastErr = nil
	m.mu.Unlock()
	m.refreshGauge()
	m.publish(ctx, ChangeEvent{Action: ActionLoaded, Count: len(list)})
	log.WithFields(log.Fields{"component": "camera", "count": len(list)}).Info("camera configs loaded")
	return nil
}

// AddCamera stores a non-empty secret under the credential key, then inserts
// the config. If the insert fails the secret just written is deleted again.
func (m *Manager) AddCamera(ctx context.Context, cfg models.CameraConfig, secret *string) (models.CameraConfig, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, apperrors.Wrap(apperrors.KindInvalidConfiguration, "camera.add", err)
	}

	wroteSecret := false
	if secret != nil && *secret != "" {
		if err := m.secrets.Set(ctx, cfg.SecretKey(), *secret); err != nil {
			return cfg, m.record(fmt.Errorf("store secret for %s: %w", cfg.ID, err))
		}
		wroteSecret = true
	}

	if err := m.store.Insert(ctx, cfg); err != nil {
		if wroteSecret {
			if derr := m.secrets.Delete(ctx, cfg.SecretKey()); derr != nil {
				logging.WithCamera("camera", cfg).WithField("error", derr).Error("secret rollback failed; secret orphaned")
			}
		}
		return cfg, m.record(fmt.Errorf("insert camera %s: %w", cfg.ID, err))
	}

	m.mu.Lock()
	m.cameras = append(m.cameras, cfg)
	m.lastErr = nil
	m.mu.Unlock()
	m.refreshGauge()
	m.publish(ctx, ChangeEvent{Action: ActionAdded, Camera: cfg})
	logging.WithCamera("camera", cfg).Info("camera added")
	return cfg, nil
}

// UpdateCamera saves cfg. secret is tri-state: nil leaves the stored secret
// alone, "" deletes it, anything else replaces it. When the credential key
// changes, the secret follows the camera to the new key.
func (m *Manager) UpdateCamera(ctx context.Context, cfg models.CameraConfig, secret *string) (models.CameraConfig, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := cfg.Validate(); err != nil {
		return cfg, apperrors.Wrap(apperrors.KindInvalidConfiguration, "camera.update", err)
	}
	prev, known := m.Camera(cfg.ID)
	if known && cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = prev.CreatedAt
	}
	cfg.Normalize()
	cfg.Touch()

	var oldKey string
	if known && prev.SecretKey() != cfg.SecretKey() {
		oldKey = prev.SecretKey()
	}
	if secret == nil && oldKey != "" {
		current, ok, err := m.secrets.Get(ctx, oldKey)
		if err != nil {
			return cfg, m.record(fmt.Errorf("read secret for %s: %w", cfg.ID, err))
		}
		if ok {
			secret = &current
		}
	}

	wroteSecret := false
	if secret != nil {
		var err error
		if *secret == "" {
			err = m.secrets.Delete(ctx, cfg.SecretKey())
		} else {
			err = m.secrets.Set(ctx, cfg.SecretKey(), *secret)
			wroteSecret = true
		}
		if err != nil {
			return cfg, m.record(fmt.Errorf("update secret for %s: %w", cfg.ID, err))
		}
	}

	if err := m.store.Save(ctx, cfg); err != nil {
		// a secret copied to a fresh key is undone; the old key still holds it
		if wroteSecret && oldKey != "" {
			if derr := m.secrets.Delete(ctx, cfg.SecretKey()); derr != nil {
				logging.WithCamera("camera", cfg).WithField("error", derr).Error("secret rollback failed; secret orphaned")
			}
		}
		return cfg, m.record(fmt.Errorf("save camera %s: %w", cfg.ID, err))
	}
	if oldKey != "" {
		if err := m.secrets.Delete(ctx, oldKey); err != nil {
			logging.WithCamera("camera", cfg).WithField("error", err).Warn("secret under previous credential key not removed")
		}
	}

	m.mu.Lock()
	replaced := false
	for i := range m.cameras {
		if m.cameras[i].ID == cfg.ID {
			m.cameras[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		m.cameras = append(m.cameras, cfg)
	}
	m.lastErr = nil
	m.mu.Unlock()
	m.refreshGauge()
	m.publish(ctx, ChangeEvent{Action: ActionUpdated, Camera: cfg})
	logging.WithCamera("camera", cfg).Info("camera updated")
	return cfg, nil
}

// DeleteCamera removes the secret, then the config. When the config delete
// fails the secret is already gone and the camera stays listed.
func (m *Manager) DeleteCamera(ctx context.Context, cfg models.CameraConfig) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.secrets.Delete(ctx, cfg.SecretKey()); err != nil {
		return m.record(fmt.Errorf("delete secret for %s: %w", cfg.ID, err))
	}
	if err := m.store.Delete(ctx, cfg.ID); err != nil {
		return m.record(fmt.Errorf("delete camera %s: %w", cfg.ID, err))
	}

	m.mu.Lock()
	kept := m.cameras[:0]
	for _, c := range m.cameras {
		if c.ID != cfg.ID {
			kept = append(kept, c)
		}
	}
	m.cameras = kept
	m.lastErr = nil
	m.mu.Unlock()
	m.stats.Forget(cfg.ID)
	m.refreshGauge()
	m.publish(ctx, ChangeEvent{Action: ActionDeleted, Camera: cfg})
	logging.WithCamera("camera", cfg).Info("camera deleted")
	return nil
}

// Provider builds a fresh provider for cfg.
func (m *Manager) Provider(ctx context.Context, cfg models.CameraConfig) (provider.Provider, error) {
	return m.factory.New(ctx, cfg)
}

// CaptureFrame builds a provider, connects, captures one frame and always
// disconnects afterwards.
func (m *Manager) CaptureFrame(ctx context.Context, cfg models.CameraConfig) (f *frame.Frame, err error) {
	ctx, span := tracing.StartSpan(ctx, "camera", "camera.capture")
	span.SetAttributes(
		attribute.String("camera.id", cfg.ID),
		attribute.String("camera.provider", string(cfg.Kind)),
	)
	start := time.Now()
	defer func() {
		kind := logging.ErrorKind(err)
		span.SetAttributes(attribute.String("result", kind))
		span.End()
		m.stats.RecordCapture(cfg.ID, string(cfg.Kind), time.Since(start), err, kind)
	}()

	p, err := m.factory.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if derr := p.Disconnect(context.WithoutCancel(ctx)); derr != nil {
			logging.WithCamera("camera", cfg).WithField("error", derr).Debug("disconnect failed")
		}
	}()

	if err := p.Connect(ctx); err != nil {
		return nil, err
	}
	return p.CaptureFrame(ctx)
}

// StreamURL is best effort: any construction failure yields ("", false).
func (m *Manager) StreamURL(ctx context.Context, cfg models.CameraConfig) (string, bool) {
	p, err := m.factory.New(ctx, cfg)
	if err != nil {
		logging.WithCamera("camera", cfg).WithField("error_kind", logging.ErrorKind(err)).Debug("no stream url")
		return "", false
	}
	return p.StreamURL()
}

func (m *Manager) publish(ctx context.Context, ev ChangeEvent) {
	if m.events == nil {
		return
	}
	meta := map[string]string{"action": ev.Action}
	if ev.Camera.ID != "" {
		meta["camera_id"] = ev.Camera.ID
	}
	m.events.Publish(ctx, events.TopicCameraChanged, ev, meta)
}

func (m *Manager) refreshGauge() {
	counts := make(map[models.ProviderKind]int, len(models.AllKinds))
	for _, c := range m.Cameras() {
		counts[c.Kind]++
	}
	for _, k := range models.AllKinds {
		monitoring.CamerasConfigured.WithLabelValues(string(k)).Set(float64(counts[k]))
	}
}
