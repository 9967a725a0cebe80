package composer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maliitkeyboard/internal/config"
	"maliitkeyboard/internal/correction/correctiontest"
	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/keyevent"
	"maliitkeyboard/internal/logging"
	"maliitkeyboard/internal/metrics"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = target
}

type preeditCall struct {
	text          string
	format        []PreeditFormat
	replaceStart  int
	replaceLength int
	cursor        int
}

// recordingSink models an application text field.
type recordingSink struct {
	text        []rune
	cursor      int
	surrounding bool

	preedit  string
	preedits []preeditCall
	commits  []string
	keys     []keyevent.KeyEvent
}

func (s *recordingSink) SendPreeditString(text string, format []PreeditFormat, replaceStart, replaceLength, cursor int) {
	s.preedit = text
	s.preedits = append(s.preedits, preeditCall{text, format, replaceStart, replaceLength, cursor})
}

func (s *recordingSink) SendCommitString(text string, _, _, cursor int) {
	ins := []rune(text)
	next := append(append(append([]rune(nil), s.text[:s.cursor]...), ins...), s.text[s.cursor:]...)
	s.text = next
	if cursor >= 0 && cursor <= len(ins) {
		s.cursor += cursor
	} else {
		s.cursor += len(ins)
	}
	s.preedit = ""
	s.commits = append(s.commits, text)
}

func (s *recordingSink) SendKeyEvent(ev keyevent.KeyEvent) {
	s.keys = append(s.keys, ev)
	if ev.SpecialKey() == keyevent.KeyBackspace && s.cursor > 0 {
		s.text = append(s.text[:s.cursor-1], s.text[s.cursor:]...)
		s.cursor--
	}
}

func (s *recordingSink) SurroundingText() (string, int, bool) {
	return string(s.text), s.cursor, s.surrounding
}

func (s *recordingSink) lastPreedit() preeditCall {
	if len(s.preedits) == 0 {
		return preeditCall{}
	}
	return s.preedits[len(s.preedits)-1]
}

type recordingUI struct {
	shown      bool
	mode       engine.WidgetMode
	candidates []string
	shows      int
}

func (u *recordingUI) SetCandidates(c []string) { u.candidates = c }
func (u *recordingUI) HideCorrectionWidget()    { u.shown = false }

func (u *recordingUI) ShowCorrectionWidget(mode engine.WidgetMode) {
	u.shown = true
	u.mode = mode
	u.shows++
}

type fixture struct {
	host    *Host
	sink    *recordingSink
	ui      *recordingUI
	clock   *manualClock
	factory *correctiontest.Factory
	manager *engine.Manager
	metrics *metrics.KeyboardMetrics
	caps    []bool
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	cfg       *config.Config
	noEngine  bool
	configure func(*correctiontest.Engine)
}

func withConfig(mut func(*config.Config)) fixtureOption {
	return func(fc *fixtureConfig) { mut(fc.cfg) }
}

func withoutEngine() fixtureOption {
	return func(fc *fixtureConfig) { fc.noEngine = true }
}

func withEngine(configure func(*correctiontest.Engine)) fixtureOption {
	return func(fc *fixtureConfig) { fc.configure = configure }
}

func newFixture(t *testing.T, language string, opts ...fixtureOption) *fixture {
	t.Helper()
	f, err := buildFixture(t.Name(), language, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.host.Close() })
	return f
}

// buildFixture wires a host around fakes. The caller closes f.host.
func buildFixture(name, language string, opts ...fixtureOption) (*fixture, error) {
	fc := &fixtureConfig{cfg: config.DefaultConfig()}
	for _, o := range opts {
		o(fc)
	}

	f := &fixture{
		sink:    &recordingSink{surrounding: true},
		ui:      &recordingUI{},
		clock:   &manualClock{},
		factory: &correctiontest.Factory{Configure: fc.configure},
	}
	m := metrics.NewKeyboardMetrics(metrics.NewRegistry("test", name))
	f.metrics = m

	mopts := engine.ManagerOptions{Logger: logging.Discard(), Metrics: m}
	if !fc.noEngine {
		mopts.DefaultEngine = func(string) engine.AbstractEngine {
			return engine.NewDefault(f.factory, engine.Options{Logger: logging.Discard(), Metrics: m})
		}
	}
	f.manager = engine.NewManager(mopts)
	if err := f.manager.RegisterBuiltins(fc.cfg.Engines, f.factory); err != nil {
		return nil, err
	}

	f.host = New(Options{
		Manager:    f.manager,
		Sink:       f.sink,
		UI:         f.ui,
		Scheduler:  f.clock,
		Config:     fc.cfg,
		Logger:     logging.Discard(),
		Metrics:    m,
		OnAutoCaps: func(active bool) { f.caps = append(f.caps, active) },
	})
	if !f.host.SetLanguage(language) {
		_ = f.host.Close()
		return nil, fmt.Errorf("language %s not activated", language)
	}
	return f, nil
}

func (f *fixture) click(ev keyevent.KeyEvent) {
	f.host.HandleKeyPress(ev)
	f.host.HandleKeyRelease(ev.WithPhase(keyevent.PhaseRelease))
	f.host.HandleKeyClick(ev)
}

func (f *fixture) typeText(s string) {
	for _, r := range s {
		f.click(keyevent.NewText(string(r)))
	}
}

func (f *fixture) space()     { f.click(keyevent.New(" ", keyevent.KeySpace)) }
func (f *fixture) backspace() { f.click(keyevent.New("", keyevent.KeyBackspace)) }

// engine returns the correction engine created for the active language.
func (f *fixture) engine() *correctiontest.Engine {
	return f.factory.Last()
}
