// Package keyboard assembles the composition pipeline from a configuration
// file: user dictionary, correction engines, language manager and host.
package keyboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"maliitkeyboard/internal/composer"
	"maliitkeyboard/internal/config"
	"maliitkeyboard/internal/dictionary"
	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/ibus"
	"maliitkeyboard/internal/logging"
	"maliitkeyboard/internal/metrics"
	"maliitkeyboard/internal/store"
)

// Options configures Open.
type Options struct {
	// ConfigPath is the configuration file. Empty means config.ConfigPath().
	ConfigPath string

	Sink      composer.TextSink
	UI        composer.CandidateUI
	Scheduler composer.Scheduler

	// Logger defaults to one built from the logging section of the config.
	Logger *logging.Logger
	// Metrics defaults to a private registry.
	Metrics *metrics.Registry

	// Watch reloads the configuration when the file changes.
	Watch      bool
	OnAutoCaps func(active bool)
}

// Keyboard owns every component of a running keyboard.
type Keyboard struct {
	loader   *config.Loader
	logger   *logging.Logger
	ownsLog  bool
	store    *store.Store
	factory  *dictionary.Factory
	manager  *engine.Manager
	host     *composer.Host
	registry *metrics.Registry
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Open loads the configuration and builds the pipeline. The configured
// active language is activated before Open returns.
func Open(ctx context.Context, opts Options) (*Keyboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loader := config.NewLoader(opts.ConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	k := &Keyboard{
		loader:   loader,
		logger:   opts.Logger,
		registry: opts.Metrics,
		done:     make(chan struct{}),
	}
	if k.logger == nil {
		lc, err := cfg.LoggerConfig()
		if err != nil {
			return nil, err
		}
		if k.logger, err = logging.New(lc); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		k.ownsLog = true
	}
	if k.registry == nil {
		k.registry = metrics.NewRegistry("maliit", "keyboard")
	}
	km := metrics.NewKeyboardMetrics(k.registry)

	dbPath := cfg.Dictionary.UserDBPath
	if dbPath == "" {
		dbPath = store.MemoryPath
	}
	if k.store, err = store.Open(dbPath); err != nil {
		k.closeLogger()
		return nil, fmt.Errorf("open user dictionary: %w", err)
	}

	k.factory = &dictionary.Factory{
		DataDir:  cfg.Dictionary.DataDir,
		User:     k.store,
		CacheTTL: time.Duration(cfg.Dictionary.CacheTTLSec) * time.Second,
		Logger:   k.logger,
	}

	engineOpts := engine.Options{Logger: k.logger, Metrics: km}
	k.manager = engine.NewManager(engine.ManagerOptions{
		Logger:  k.logger,
		Metrics: km,
		DefaultEngine: func(string) engine.AbstractEngine {
			return engine.NewDefault(k.factory, engineOpts)
		},
	})
	if err := k.manager.RegisterBuiltins(cfg.Engines, k.factory); err != nil {
		k.store.Close()
		k.closeLogger()
		return nil, fmt.Errorf("register engines: %w", err)
	}

	k.host = composer.New(composer.Options{
		Manager:    k.manager,
		Sink:       opts.Sink,
		UI:         opts.UI,
		Scheduler:  opts.Scheduler,
		Config:     cfg,
		Logger:     k.logger,
		Metrics:    km,
		OnAutoCaps: opts.OnAutoCaps,
	})
	if !k.host.SetLanguage(cfg.Keyboard.ActiveLanguage) {
		k.logger.Warn("active language not activated", "language", cfg.Keyboard.ActiveLanguage)
	}

	loader.OnChange(func(old, updated *config.Config) {
		keys := config.ChangedKeys(old, updated)
		if len(keys) == 0 {
			return
		}
		k.logger.Info("configuration changed", "keys", keys)
		k.host.ApplyConfig(updated)
	})
	if opts.Watch {
		if err := loader.Watch(); err != nil {
			k.Close()
			return nil, fmt.Errorf("watch config: %w", err)
		}
		go k.logReloadErrors()
	}

	k.logger.Info("keyboard ready",
		"language", k.host.Language(),
		"config", loader.Path())
	return k, nil
}

func (k *Keyboard) logReloadErrors() {
	for {
		select {
		case err := <-k.loader.Errors():
			k.logger.Warn("config reload failed", "error", err)
		case <-k.done:
			return
		}
	}
}

// Host returns the composition core.
func (k *Keyboard) Host() *composer.Host { return k.host }

// Config returns the current configuration snapshot.
func (k *Keyboard) Config() *config.Config { return k.loader.Config() }

// Metrics returns the registry the pipeline records into.
func (k *Keyboard) Metrics() *metrics.Registry { return k.registry }

// UpdateConfig applies fn to the configuration and pushes the result to the
// host. The file on disk is not rewritten.
func (k *Keyboard) UpdateConfig(fn func(*config.Config)) error {
	return k.loader.Update(fn)
}

// Close stops watching and releases the engines, the store and an owned
// logger. It is safe to call more than once.
func (k *Keyboard) Close() error {
	k.closeOnce.Do(func() {
		close(k.done)
		var errs []error
		if err := k.loader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close config loader: %w", err))
		}
		if k.host != nil {
			if err := k.host.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close host: %w", err))
			}
		}
		if live := k.factory.Live(); live > 0 {
			k.logger.Warn("correction engines still live", "count", live)
		}
		if err := k.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		k.closeLogger()
		k.closeErr = errors.Join(errs...)
	})
	return k.closeErr
}

func (k *Keyboard) closeLogger() {
	if k.ownsLog {
		_ = k.logger.Close()
	}
}

// ServeIBus runs the keyboard as an IBus engine until ctx is done.
func ServeIBus(ctx context.Context, opts Options) error {
	eng := ibus.NewEngine(ibus.Options{Logger: opts.Logger})
	opts.Sink = eng
	opts.UI = eng

	k, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer k.Close()

	eng.Attach(k.Host())
	cfg := k.Config()
	return ibus.Serve(ctx, cfg.IBus.Address, cfg.IBus.EngineName, eng)
}
