package engine

import (
	"errors"
	"fmt"

	"maliitkeyboard/internal/config"
	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/handler"
	"maliitkeyboard/internal/logging"
	"maliitkeyboard/internal/metrics"
)

// EngineConstructor builds the engine for a language tag. It may return nil
// for languages that compose without correction.
type EngineConstructor func(tag string) AbstractEngine

// HandlerConstructor builds the handler for a language tag.
type HandlerConstructor func(tag string) handler.Handler

// SwitchObserver is told about language transitions.
type SwitchObserver interface {
	// LanguageWillChange runs before the switch while the outgoing handler
	// is still active.
	LanguageWillChange(outgoing handler.Handler)
	// LanguageChanged runs after the new engine and handler are in place.
	LanguageChanged(tag string)
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// DefaultEngine builds the engine shared by every language without an
	// override. Nil means such languages have no correction.
	DefaultEngine EngineConstructor
	// DefaultHandler is shared by every language without an override.
	// Defaults to handler.NewDefault().
	DefaultHandler handler.Handler
	Logger         *logging.Logger
	Metrics        *metrics.KeyboardMetrics
}

// Manager maps the active language to its engine and handler. It is not
// safe for concurrent use; the composition core serialises access.
type Manager struct {
	logger  *logging.Logger
	metrics *metrics.KeyboardMetrics

	engineCtors  map[string]EngineConstructor
	handlerCtors map[string]HandlerConstructor

	defaultCtor    EngineConstructor
	defaultEngine  AbstractEngine
	defaultBuilt   bool
	defaultHandler handler.Handler

	engines  map[string]AbstractEngine
	handlers map[string]handler.Handler
	created  []AbstractEngine

	language      string
	activeEngine  AbstractEngine
	activeHandler handler.Handler

	settings Settings
	observer SwitchObserver
	closed   bool
}

// NewManager creates a manager with no active language.
func NewManager(opts ManagerOptions) *Manager {
	h := opts.DefaultHandler
	if h == nil {
		h = handler.NewDefault()
	}
	return &Manager{
		logger:         logging.OrDefault(opts.Logger).WithComponent("engine-manager"),
		metrics:        opts.Metrics,
		engineCtors:    make(map[string]EngineConstructor),
		handlerCtors:   make(map[string]HandlerConstructor),
		defaultCtor:    opts.DefaultEngine,
		defaultHandler: h,
		engines:        make(map[string]AbstractEngine),
		handlers:       make(map[string]handler.Handler),
		activeHandler:  h,
	}
}

// RegisterEngine overrides the engine for a base language such as "zh".
func (m *Manager) RegisterEngine(base string, ctor EngineConstructor) {
	m.engineCtors[base] = ctor
}

// RegisterHandler overrides the handler for a base language.
func (m *Manager) RegisterHandler(base string, ctor HandlerConstructor) {
	m.handlerCtors[base] = ctor
}

// RegisterBuiltins registers the built-in handlers and one engine override
// per entry of engines, which maps base languages to config.EngineDefault,
// config.EngineCJK or config.EngineNone.
func (m *Manager) RegisterBuiltins(engines map[string]string, factory correction.Factory) error {
	for _, base := range []string{"en", "ko", "vi", "th"} {
		m.RegisterHandler(base, func(tag string) handler.Handler {
			return handler.ForLanguage(BaseLanguage(tag))
		})
	}

	opts := Options{Logger: m.logger, Metrics: m.metrics}
	for base, name := range engines {
		switch name {
		case config.EngineDefault:
			m.RegisterEngine(base, func(string) AbstractEngine { return NewDefault(factory, opts) })
		case config.EngineCJK:
			m.RegisterEngine(base, func(string) AbstractEngine { return NewCJK(factory, opts) })
		case config.EngineNone:
			m.RegisterEngine(base, func(string) AbstractEngine { return nil })
		default:
			return fmt.Errorf("language %s: engine %q: %w", base, name, ErrUnsupportedLanguage)
		}
	}
	return nil
}

// SetObserver installs the switch observer.
func (m *Manager) SetObserver(o SwitchObserver) {
	m.observer = o
}

// Language returns the active language tag.
func (m *Manager) Language() string { return m.language }

// Handler returns the active handler. It is never nil.
func (m *Manager) Handler() handler.Handler { return m.activeHandler }

// AbstractEngine returns the active engine owner, or nil.
func (m *Manager) AbstractEngine() AbstractEngine { return m.activeEngine }

// Engine returns the active correction engine, or nil when the language
// has none or it failed to load.
func (m *Manager) Engine() correction.Engine {
	if m.activeEngine == nil {
		return nil
	}
	return m.activeEngine.Engine()
}

// Settings returns the last applied settings.
func (m *Manager) Settings() Settings { return m.settings }

// UpdateLanguage makes tag the active language. It does nothing and
// returns false when tag is already active.
func (m *Manager) UpdateLanguage(tag string) bool {
	if m.closed || tag == m.language {
		return false
	}

	base := BaseLanguage(tag)
	next := m.engineFor(tag, base)
	nextHandler := m.handlerFor(tag, base)

	if m.observer != nil && m.language != "" {
		m.observer.LanguageWillChange(m.activeHandler)
	}

	previous := m.activeHandler
	m.language = tag
	m.activeEngine = next
	m.activeHandler = nextHandler

	if next != nil {
		if err := next.UpdateEngineLanguage(tag); err != nil {
			m.logger.Warn("language binding failed, correction disabled", "language", tag, "error", err)
		}
	}

	if previous != nextHandler {
		previous.Deactivate()
		nextHandler.Activate()
	} else if !nextHandler.Active() {
		nextHandler.Activate()
	}

	if m.metrics != nil {
		m.metrics.RecordLanguageSwitch()
	}
	m.logger.Debug("language switched",
		"language", tag,
		"handler", nextHandler.Kind().String(),
		"correction", m.Engine() != nil,
	)

	if m.observer != nil {
		m.observer.LanguageChanged(tag)
	}
	return true
}

func (m *Manager) engineFor(tag, base string) AbstractEngine {
	if e, ok := m.engines[tag]; ok {
		return e
	}

	var e AbstractEngine
	if ctor, ok := m.engineCtors[base]; ok {
		e = ctor(tag)
		if e != nil {
			e.ApplySettings(m.settings)
			m.created = append(m.created, e)
		}
	} else {
		e = m.sharedDefault()
	}
	m.engines[tag] = e
	return e
}

func (m *Manager) sharedDefault() AbstractEngine {
	if !m.defaultBuilt {
		m.defaultBuilt = true
		if m.defaultCtor != nil {
			m.defaultEngine = m.defaultCtor("")
		}
		if m.defaultEngine != nil {
			m.defaultEngine.ApplySettings(m.settings)
			m.created = append(m.created, m.defaultEngine)
		}
	}
	return m.defaultEngine
}

func (m *Manager) handlerFor(tag, base string) handler.Handler {
	if h, ok := m.handlers[tag]; ok {
		return h
	}
	h := m.defaultHandler
	if ctor, ok := m.handlerCtors[base]; ok {
		if built := ctor(tag); built != nil {
			h = built
		}
	}
	m.handlers[tag] = h
	return h
}

// ApplySettings pushes s to every engine created so far and remembers it for
// engines created later.
func (m *Manager) ApplySettings(s Settings) {
	m.settings = s
	for _, e := range m.created {
		e.ApplySettings(s)
	}
}

// Close deactivates the active handler and releases every engine once.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.activeHandler.Active() {
		m.activeHandler.Deactivate()
	}

	var errs []error
	for _, e := range m.created {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.created = nil
	m.activeEngine = nil
	return errors.Join(errs...)
}
