package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ChangeFunc receives the previous and the new configuration snapshot.
type ChangeFunc func(old, updated *Config)

// Loader handles configuration loading, watching, and hot-reloading.
type Loader struct {
	path     string
	config   *Config
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	onChange []ChangeFunc
	ctx      context.Context
	cancel   context.CancelFunc
	errChan  chan error
	debounce time.Duration
	done     chan struct{}
}

// NewLoader creates a new configuration loader. An empty path means
// ConfigPath().
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:     path,
		errChan:  make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
		debounce: 100 * time.Millisecond,
	}
}

// Path returns the watched file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads, checks and validates the configuration file. A missing file
// yields the defaults.
func (l *Loader) Load() (*Config, error) {
	cfg, err := loadConfigFromFile(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration snapshot.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers a callback invoked after every successful reload or
// Update.
func (l *Loader) OnChange(cb ChangeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

// Update applies fn to a copy of the current configuration, validates the
// result and publishes it.
func (l *Loader) Update(fn func(*Config)) error {
	l.mu.RLock()
	current := l.config
	l.mu.RUnlock()
	if current == nil {
		current = DefaultConfig()
	}

	next := current.Clone()
	fn(next)
	if err := next.Validate(); err != nil {
		return err
	}
	l.publish(next)
	return nil
}

// Reload re-reads the file and publishes the result.
func (l *Loader) Reload() error {
	cfg, err := loadConfigFromFile(l.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	l.publish(cfg)
	return nil
}

func (l *Loader) publish(cfg *Config) {
	l.mu.Lock()
	old := l.config
	l.config = cfg
	callbacks := append([]ChangeFunc(nil), l.onChange...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(old, cfg)
	}
}

// Watch starts watching the configuration file for changes. Changes are
// debounced, reloaded and passed to the OnChange callbacks; failures go to
// Errors().
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are noticed.
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		watcher.Close()
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})
	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	defer close(l.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(l.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(l.debounce, func() {
				if l.ctx.Err() != nil {
					return
				}
				if err := l.Reload(); err != nil {
					l.sendErr(err)
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.sendErr(err)
		}
	}
}

func (l *Loader) sendErr(err error) {
	select {
	case l.errChan <- err:
	default:
	}
}

// Errors returns a channel for receiving errors that occur during watching.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Close stops the watcher and releases resources.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	return err
}

// Load reads configuration from path without watching it.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// loadConfigFromFile reads, schema-checks, decodes and validates a config
// file based on its extension.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		cfg.ApplyEnvOverrides()
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	format := formatFor(path, data)

	var doc map[string]any
	if err := decode(format, data, &doc); err != nil {
		return nil, err
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := decode(format, data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func formatFor(path string, data []byte) string {
	switch ext := filepath.Ext(path); ext {
	case ".toml", ".json":
		return ext[1:]
	case ".yaml", ".yml":
		return "yaml"
	}
	return detectFormat(data)
}

// detectFormat tries TOML, JSON and YAML in that order.
func detectFormat(data []byte) string {
	var probe map[string]any
	if _, err := toml.Decode(string(data), &probe); err == nil {
		return "toml"
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		return "json"
	}
	return "yaml"
}

func decode(format string, data []byte, v any) error {
	switch format {
	case "toml":
		if _, err := toml.Decode(string(data), v); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	}
	return nil
}

// SaveConfig writes cfg to path in the format implied by its extension
// (TOML by default).
func SaveConfig(cfg *Config, path string) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
