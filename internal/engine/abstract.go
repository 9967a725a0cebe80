// Package engine binds correction engines to languages. An AbstractEngine
// owns one correction.Engine and keeps it in step with configuration; the
// Manager picks the engine and handler pair for the active language.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"maliitkeyboard/internal/config"
	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/logging"
	"maliitkeyboard/internal/metrics"
)

// ErrUnsupportedLanguage is returned when an engine cannot serve a language.
var ErrUnsupportedLanguage = errors.New("engine: unsupported language")

// WidgetMode selects how candidates are presented.
type WidgetMode int

const (
	// WidgetFloating shows a single suggestion next to the typed word.
	WidgetFloating WidgetMode = iota
	// WidgetList shows every candidate in a selectable list.
	WidgetList
)

func (m WidgetMode) String() string {
	if m == WidgetList {
		return "list"
	}
	return "floating"
}

// Settings is the configuration snapshot pushed into engines.
type Settings struct {
	CorrectionEnabled   bool
	CorrectionWithSpace bool
	NextWordPrediction  bool
	FuzzyMatching       bool
	Script              correction.Script
}

// SettingsFromConfig extracts the engine settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	kb := cfg.Keyboard
	s := Settings{
		CorrectionEnabled:   kb.CorrectionEnabled,
		CorrectionWithSpace: kb.CorrectionWithSpace,
		NextWordPrediction:  kb.NextWordPrediction,
		FuzzyMatching:       kb.FuzzyMatching,
	}
	if kb.ScriptPriority == config.ScriptTraditional {
		s.Script = correction.ScriptTraditional
	}
	return s
}

// AbstractEngine owns one correction engine for one or more languages.
type AbstractEngine interface {
	// Engine returns the bound correction engine, or nil when none is
	// available for the current language.
	Engine() correction.Engine
	// UpdateEngineLanguage binds the engine to tag. On failure Engine
	// returns nil until a later call succeeds.
	UpdateEngineLanguage(tag string) error
	ApplySettings(s Settings)
	CorrectionAcceptedWithSpace() bool
	CandidateMode() WidgetMode
	// Close releases the correction engine. Further calls do nothing.
	Close() error
}

// Options configures engine construction.
type Options struct {
	// Name is passed to Factory.Create. Defaults to "default" or "cjk".
	Name    string
	Logger  *logging.Logger
	Metrics *metrics.KeyboardMetrics
}

// BaseLanguage strips an "@variant" suffix: "zh@pinyin" becomes "zh".
func BaseLanguage(tag string) string {
	base, _ := SplitTag(tag)
	return base
}

// SplitTag splits tag into its base language and variant.
func SplitTag(tag string) (base, variant string) {
	base, variant, _ = strings.Cut(tag, "@")
	return base, variant
}

// owned holds a correction engine created by a factory and releases it
// exactly once.
type owned struct {
	factory correction.Factory
	name    string
	logger  *logging.Logger
	metrics *metrics.KeyboardMetrics

	engine correction.Engine
	bound  bool
	closed bool
}

func acquire(factory correction.Factory, opts Options, fallbackName string) owned {
	o := owned{
		factory: factory,
		name:    opts.Name,
		logger:  logging.OrDefault(opts.Logger).WithComponent("engine"),
		metrics: opts.Metrics,
	}
	if o.name == "" {
		o.name = fallbackName
	}
	if factory == nil {
		o.unavailable(errors.New("no correction engine factory"))
		return o
	}

	e, err := factory.Create(o.name)
	if err != nil {
		o.unavailable(err)
		return o
	}
	o.engine = e
	return o
}

func (o *owned) unavailable(err error) {
	o.logger.Warn("correction engine unavailable", "engine", o.name, "error", err)
	if o.metrics != nil {
		o.metrics.RecordEngineUnavailable()
	}
}

// bind sets the engine language and records whether it succeeded.
func (o *owned) bind(tag string) error {
	if o.engine == nil {
		return fmt.Errorf("bind %s: engine %q not loaded", tag, o.name)
	}
	if err := o.engine.SetLanguage(tag, correction.PriorityPrimary); err != nil {
		o.bound = false
		o.unavailable(err)
		return fmt.Errorf("bind %s: %w", tag, err)
	}
	o.bound = true
	return nil
}

func (o *owned) Engine() correction.Engine {
	if o.engine == nil || !o.bound {
		return nil
	}
	return o.engine
}

func (o *owned) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if o.engine != nil && o.factory != nil {
		o.factory.Release(o.engine)
	}
	o.engine = nil
	o.bound = false
	return nil
}
