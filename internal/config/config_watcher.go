package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	reloadDebounce  = 100 * time.Millisecond
	pollingInterval = 5 * time.Second
)

func (cm *ConfigManager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		cm.startPollingWatcher()
		return
	}

	// Watch the directory so atomic rename-over writes are seen too.
	configDir := filepath.Dir(cm.configPath)
	if err := watcher.Add(configDir); err != nil {
		log.WithError(err).WithField("dir", configDir).Warn("failed to watch config directory, falling back to polling")
		watcher.Close()
		cm.startPollingWatcher()
		return
	}
	log.WithField("path", cm.configPath).Info("file watcher started using fsnotify")

	target := filepath.Clean(cm.configPath)
	go func() {
		defer watcher.Close()
		var debounceTimer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, cm.checkAndReload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("file watcher error")

			case <-cm.stopCh:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			}
		}
	}()
}

func (cm *ConfigManager) startPollingWatcher() {
	ticker := time.NewTicker(pollingInterval)
	log.WithField("interval", pollingInterval.String()).Info("file watcher started using polling")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cm.checkAndReload()
			case <-cm.stopCh:
				return
			}
		}
	}()
}

func (cm *ConfigManager) checkAndReload() {
	if cm.configPath == "" {
		return
	}
	info, err := os.Stat(cm.configPath)
	if err != nil {
		return
	}
	cm.mu.RLock()
	lastMod := cm.lastMod
	cm.mu.RUnlock()
	if !info.ModTime().After(lastMod) {
		return
	}

	oldConfig := cm.GetConfig()
	if err := cm.load(); err != nil {
		log.WithError(err).WithField("path", cm.configPath).Warn("failed to reload config")
		return
	}
	newConfig := cm.GetConfig()
	if err := newConfig.Validate(); err != nil {
		log.WithError(err).Warn("reloaded config is invalid; keeping it but check the file")
	}

	cm.emitChange(oldConfig, newConfig)
	logConfigChanges(oldConfig, newConfig)
}

func logConfigChanges(old, new *FileConfig) {
	if old.Security.Debug != new.Security.Debug {
		log.WithFields(log.Fields{"field": "security.debug", "old": old.Security.Debug, "new": new.Security.Debug}).Info("config changed")
	}
	if old.Monitor.IntervalSec != new.Monitor.IntervalSec {
		log.WithFields(log.Fields{"field": "monitor.interval_sec", "old": old.Monitor.IntervalSec, "new": new.Monitor.IntervalSec}).Info("config changed")
	}
	if old.Discovery.TimeoutSec != new.Discovery.TimeoutSec {
		log.WithFields(log.Fields{"field": "discovery.timeout_sec", "old": old.Discovery.TimeoutSec, "new": new.Discovery.TimeoutSec}).Info("config changed")
	}
	if old.HTTP.RequestTimeoutSec != new.HTTP.RequestTimeoutSec {
		log.WithFields(log.Fields{"field": "http.request_timeout_sec", "old": old.HTTP.RequestTimeoutSec, "new": new.HTTP.RequestTimeoutSec}).Info("config changed")
	}
	if old.Storage.Label() != new.Storage.Label() {
		log.WithFields(log.Fields{"field": "storage.backend", "old": old.Storage.Label(), "new": new.Storage.Label()}).Warn("storage backend changes need a restart")
	}
}
