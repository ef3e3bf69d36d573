package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"camgate-go/internal/models"
	log "github.com/sirupsen/logrus"
)

// FileBackend stores one JSON document per camera under baseDir/cameras.
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
	cameras map[string]models.CameraConfig
}

// NewFileBackend creates a new file-based storage backend
func NewFileBackend(baseDir string) *FileBackend {
	return &FileBackend{
		baseDir: baseDir,
		cameras: make(map[string]models.CameraConfig),
	}
}

func (f *FileBackend) dir() string {
	return filepath.Join(f.baseDir, "cameras")
}

func (f *FileBackend) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(f.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", f.dir(), err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) Health(ctx context.Context) error {
	_, err := os.Stat(f.dir())
	return err
}

func (f *FileBackend) FetchAll(ctx context.Context) ([]models.CameraConfig, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.CameraConfig, 0, len(f.cameras))
	for _, cfg := range f.cameras {
		out = append(out, cfg)
	}
	sortConfigs(out)
	return out, nil
}

func (f *FileBackend) Insert(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.cameras[cfg.ID]; exists {
		return &ErrAlreadyExists{Key: cfg.ID}
	}
	if err := f.writeLocked(cfg); err != nil {
		return err
	}
	f.cameras[cfg.ID] = cfg
	return nil
}

func (f *FileBackend) Save(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.cameras[cfg.ID]; !exists {
		return &ErrNotFound{Key: cfg.ID}
	}
	if err := f.writeLocked(cfg); err != nil {
		return err
	}
	f.cameras[cfg.ID] = cfg
	return nil
}

func (f *FileBackend) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.cameras[id]; !exists {
		return nil
	}
	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove camera %s: %w", id, err)
	}
	delete(f.cameras, id)
	return nil
}

func (f *FileBackend) path(id string) string {
	// ids are uuids in practice; strip separators so a crafted id stays in dir()
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
	return filepath.Join(f.dir(), safe+".json")
}

func (f *FileBackend) loadLocked() error {
	entries, err := os.ReadDir(f.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir(), entry.Name()))
		if err != nil {
			log.WithError(err).WithField("file", entry.Name()).Warn("skipping unreadable camera file")
			continue
		}
		cfg, err := decodeConfig(data)
		if err != nil || cfg.ID == "" {
			log.WithField("file", entry.Name()).Warn("skipping malformed camera file")
			continue
		}
		f.cameras[cfg.ID] = cfg
	}
	return nil
}

func (f *FileBackend) writeLocked(cfg models.CameraConfig) error {
	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	target := f.path(cfg.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write camera %s: %w", cfg.ID, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename camera %s: %w", cfg.ID, err)
	}
	return nil
}
