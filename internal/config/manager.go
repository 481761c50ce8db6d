package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/wayswitch/wayswitch/internal/logger"
)

// Manager loads the daemon configuration and keeps it current while
// the config file changes on disk.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager reads the config file, creating it with defaults when it
// does not exist yet. An empty configFile means the default location
// under ~/.config/wayswitch.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		actualConfigPath = filepath.Join(homeDir, ".config", "wayswitch", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
		done:       make(chan struct{}),
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("log_level", m.config.LogLevel).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// GetConfigPath returns the path of the config file.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Watch starts watching the config file and invokes onChange with the
// freshly loaded config after every successful reload. Editors replace
// files with rename+create, so the parent directory is watched rather
// than the file itself. Changes within 100ms collapse into one reload.
func (m *Manager) Watch(onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	m.watcher = watcher

	log := logger.WithComponent("config")
	go func() {
		var pending *time.Timer
		reload := func() {
			if err := m.load(); err != nil {
				log.Warn().Err(err).Msg("Config reload failed, keeping previous config")
				return
			}
			log.Info().Msg("Config reloaded")
			onChange(m.Get())
		}
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != m.configPath {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(100*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Config watcher error")
			case <-m.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the config watcher.
func (m *Manager) Close() error {
	close(m.done)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
