package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"camgate-go/internal/events"

	log "github.com/sirupsen/logrus"
)

// ConfigManager owns the live configuration and reloads it when the file changes.
type ConfigManager struct {
	mu         sync.RWMutex
	config     *FileConfig
	configPath string
	stopCh     chan struct{}
	stopOnce   sync.Once
	onChange   []func(*FileConfig)
	lastMod    time.Time
	publisher  events.Publisher
}

// DefaultSearchPaths is consulted when no explicit path is given.
var DefaultSearchPaths = []string{
	"camgate.yaml",
	"camgate.yml",
	"camgate.json",
	filepath.Join("~", ".camgate", "config.yaml"),
	"/etc/camgate/config.yaml",
}

// NewConfigManager loads configPath (or the first existing default path)
// and starts watching it.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		for _, loc := range DefaultSearchPaths {
			expanded, err := expandHome(loc)
			if err != nil {
				continue
			}
			if _, err := os.Stat(expanded); err == nil {
				configPath = expanded
				break
			}
		}
	}
	configPath, err := expandHome(configPath)
	if err != nil {
		return nil, err
	}

	cm := &ConfigManager{
		configPath: configPath,
		stopCh:     make(chan struct{}),
	}

	if err := cm.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg := DefaultConfig()
		applyEnv(cfg)
		cm.config = cfg
		log.WithField("path", configPath).Warn("using default configuration (no config file found)")
	}

	if cm.configPath != "" {
		if _, err := os.Stat(cm.configPath); err == nil {
			cm.startWatcher()
		}
	}
	return cm, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Path returns the watched file, possibly empty.
func (cm *ConfigManager) Path() string { return cm.configPath }

// OnChange registers a callback invoked after every successful reload.
func (cm *ConfigManager) OnChange(fn func(*FileConfig)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onChange = append(cm.onChange, fn)
}

// SetEventPublisher wires the event hub used to broadcast config updates.
func (cm *ConfigManager) SetEventPublisher(p events.Publisher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.publisher = p
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *FileConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.config == nil {
		return DefaultConfig()
	}
	return cm.config.Clone()
}

// Update applies fn to a copy of the configuration, persists it when a
// file is configured, and notifies listeners.
func (cm *ConfigManager) Update(fn func(*FileConfig)) error {
	cm.mu.Lock()
	oldCfg := cm.config.Clone()
	next := cm.config.Clone()
	if next == nil {
		next = DefaultConfig()
	}
	fn(next)
	if err := next.Validate(); err != nil {
		cm.mu.Unlock()
		return err
	}
	if cm.configPath != "" {
		if err := Save(cm.configPath, next); err != nil {
			cm.mu.Unlock()
			return err
		}
		if info, err := os.Stat(cm.configPath); err == nil {
			cm.lastMod = info.ModTime()
		}
	}
	cm.config = next
	cm.mu.Unlock()

	cm.emitChange(oldCfg, next.Clone())
	return nil
}

// Close stops the watcher. Safe to call more than once.
func (cm *ConfigManager) Close() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

func (cm *ConfigManager) listenersSnapshot() ([]func(*FileConfig), events.Publisher, string) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	callbacks := make([]func(*FileConfig), len(cm.onChange))
	copy(callbacks, cm.onChange)
	return callbacks, cm.publisher, cm.configPath
}

func (cm *ConfigManager) emitChange(oldCfg, newCfg *FileConfig) {
	callbacks, publisher, path := cm.listenersSnapshot()
	for _, fn := range callbacks {
		fn(newCfg)
	}
	if publisher != nil && newCfg != nil {
		event := ConfigChangeEvent{
			Path:      path,
			UpdatedAt: time.Now().UTC(),
			Config:    *newCfg,
			Previous:  oldCfg,
		}
		publisher.Publish(context.Background(), events.TopicConfigUpdated, event, nil)
	}
}

// ConfigChangeEvent is the payload broadcast when configuration changes.
type ConfigChangeEvent struct {
	Path      string      `json:"path"`
	UpdatedAt time.Time   `json:"updated_at"`
	Config    FileConfig  `json:"config"`
	Previous  *FileConfig `json:"previous,omitempty"`
}
