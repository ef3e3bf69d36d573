package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LoadFile parses path on top of the defaults and applies env overrides.
// A missing file yields the defaults.
func LoadFile(path string) (*FileConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeInto(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err):
			log.WithField("path", path).Warn("config file not found, using defaults")
		default:
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func decodeInto(path string, data []byte, cfg *FileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("failed to parse config file (tried YAML and JSON)")
			}
		}
	}
	return nil
}

func (cm *ConfigManager) load() error {
	if cm.configPath == "" {
		return os.ErrNotExist
	}
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	cfg := DefaultConfig()
	if err := decodeInto(cm.configPath, data, cfg); err != nil {
		return err
	}
	applyEnv(cfg)

	info, statErr := os.Stat(cm.configPath)

	cm.mu.Lock()
	cm.config = cfg
	if statErr == nil {
		cm.lastMod = info.ModTime()
	}
	cm.mu.Unlock()
	log.WithField("path", cm.configPath).Info("configuration loaded")
	return nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *FileConfig) error {
	if path == "" {
		return fmt.Errorf("no config file path set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	log.WithField("path", path).Info("configuration saved")
	return nil
}
