package composer

import (
	"slices"
	"sync"
	"time"

	"maliitkeyboard/internal/config"
	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/handler"
	"maliitkeyboard/internal/logging"
	"maliitkeyboard/internal/metrics"
)

// Options configures a Host.
type Options struct {
	Manager *engine.Manager
	Sink    TextSink
	// UI may be nil when candidates are not presented.
	UI CandidateUI
	// Scheduler defaults to SystemScheduler.
	Scheduler Scheduler
	// Config defaults to config.DefaultConfig.
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *metrics.KeyboardMetrics
	// OnAutoCaps is called whenever the auto-caps suggestion changes.
	OnAutoCaps func(active bool)
}

// Host is the composition core. All methods are safe for concurrent use;
// timer callbacks are serialised with key handling.
type Host struct {
	mu sync.Mutex

	manager *engine.Manager
	sink    TextSink
	ui      CandidateUI
	sched   Scheduler
	logger  *logging.Logger
	metrics *metrics.KeyboardMetrics

	onAutoCaps      func(bool)
	autoCapsEnabled bool
	autoCaps        bool

	cycleTimeout    time.Duration
	backspaceDelay  time.Duration
	backspaceRepeat time.Duration

	preedit    []rune
	cursor     int
	candidates []string
	widget     bool
	predicting bool

	cycle      CycleKeyState
	cycleTimer Timer
	cycleGen   uint64

	backspaceTimer    Timer
	backspaceGen      uint64
	backspaceHeld     bool
	backspaceRepeated bool

	layoutKeys []correction.LayoutKey
	watched    map[*engine.Default]bool
	closed     bool
}

// New creates a Host and installs it as the manager's switch observer.
func New(opts Options) *Host {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewKeyboardMetrics(nil)
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = SystemScheduler{}
	}
	mgr := opts.Manager
	if mgr == nil {
		mgr = engine.NewManager(engine.ManagerOptions{Logger: opts.Logger, Metrics: m})
	}

	h := &Host{
		manager:    mgr,
		sink:       opts.Sink,
		ui:         opts.UI,
		sched:      sched,
		logger:     logging.OrDefault(opts.Logger).WithComponent("composer"),
		metrics:    m,
		onAutoCaps: opts.OnAutoCaps,
		cursor:     -1,
		watched:    make(map[*engine.Default]bool),
	}
	h.applyTimings(cfg)
	h.autoCapsEnabled = cfg.Keyboard.AutoCaps
	mgr.ApplySettings(engine.SettingsFromConfig(cfg))
	mgr.SetObserver(switchObserver{h})
	return h
}

func (h *Host) applyTimings(cfg *config.Config) {
	h.cycleTimeout = cfg.CycleTimeout()
	h.backspaceDelay = cfg.BackspaceDelay()
	h.backspaceRepeat = cfg.BackspaceRepeat()
}

// Preedit returns a snapshot of the composition buffer.
func (h *Host) Preedit() PreeditState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return PreeditState{
		Text:       string(h.preedit),
		Cursor:     h.cursor,
		Candidates: append([]string(nil), h.candidates...),
	}
}

// Cycle returns the multi-tap state.
func (h *Host) Cycle() CycleKeyState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cycle
}

// AutoCapsActive reports whether the next letter should be capitalised.
func (h *Host) AutoCapsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.autoCaps
}

// Language returns the active language tag.
func (h *Host) Language() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manager.Language()
}

// SetLanguage switches the active language. Switching to the active
// language does nothing.
func (h *Host) SetLanguage(tag string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	return h.manager.UpdateLanguage(tag)
}

// ApplyConfig pushes a new configuration. A changed active language is
// switched to.
func (h *Host) ApplyConfig(cfg *config.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	settings := engine.SettingsFromConfig(cfg)
	// A Default engine reports the change through correctionChanged.
	if _, notifies := h.manager.AbstractEngine().(*engine.Default); !notifies {
		if !settings.CorrectionEnabled && len(h.preedit) > 0 {
			h.commitPreedit(false, -1)
		}
	}
	h.manager.ApplySettings(settings)
	h.applyTimings(cfg)
	h.autoCapsEnabled = cfg.Keyboard.AutoCaps

	if lang := cfg.Keyboard.ActiveLanguage; lang != "" {
		h.manager.UpdateLanguage(lang)
	}
	h.updateAutoCaps()
}

// SetLayoutKeys records the visible layout for touch-point correction.
func (h *Host) SetLayoutKeys(keys []correction.LayoutKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layoutKeys = append(h.layoutKeys[:0], keys...)
	if e := h.manager.Engine(); e != nil {
		e.SetKeyboardLayoutKeys(h.layoutKeys)
	}
}

// FocusIn evaluates auto-caps for a newly focused field.
func (h *Host) FocusIn() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updateAutoCaps()
}

// FocusOut ends the composition as Reset does and drops the auto-caps
// suggestion.
func (h *Host) FocusOut() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reset()
	h.setAutoCaps(false)
}

// Reset ends the composition. The preedit is committed when the handler
// asks for it and discarded otherwise.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reset()
}

func (h *Host) reset() {
	h.stopBackspace()
	h.stopCycle()
	hd := h.manager.Handler()
	if len(h.preedit) > 0 {
		if hd.CommitPreeditOnReset() {
			h.commitPreedit(false, -1)
		} else {
			h.sink.SendPreeditString("", nil, 0, 0, 0)
		}
	}
	if e := h.manager.Engine(); e != nil {
		e.ClearEngineBuffer()
	}
	hd.Reset()
	h.clearState()
}

// SetCursorPosition moves the cursor inside the preedit. Handlers that do
// not allow it get the preedit committed instead; the return value reports
// whether the cursor stayed inside the preedit.
func (h *Host) SetCursorPosition(pos int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.preedit) == 0 {
		return false
	}
	if !h.manager.Handler().CursorCanMoveInsidePreedit() || pos < 0 || pos > len(h.preedit) {
		h.commitPreedit(false, -1)
		h.updateAutoCaps()
		return false
	}
	h.stopCycle()
	if pos == len(h.preedit) {
		pos = -1
	}
	h.cursor = pos
	h.sendPreedit()
	h.updateWidget()
	return true
}

// InjectPreedit reopens an already committed word as preedit. The word
// replaces replaceLength characters starting replaceStart characters from
// the application cursor.
func (h *Host) InjectPreedit(word string, cursor, replaceStart, replaceLength int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	hd := h.manager.Handler()
	e := h.manager.Engine()
	if h.closed || word == "" || e == nil || !hd.AcceptPreeditInjection() || !h.manager.Settings().CorrectionEnabled {
		return false
	}
	if len(h.preedit) > 0 {
		h.commitPreedit(false, -1)
	}

	h.preedit = []rune(word)
	h.cursor = cursor
	if cursor < 0 || cursor >= len(h.preedit) {
		h.cursor = -1
	}
	e.ReselectString(word)
	h.refreshCandidates()
	h.sink.SendPreeditString(word, h.preeditFormat(), replaceStart, replaceLength, h.sinkCursor())
	h.metrics.SetPreeditLength(len(h.preedit))
	h.updateWidget()
	h.setAutoCaps(false)
	return true
}

// CandidateClicked commits word, picked from the candidate list at index,
// or makes it the preedit for handlers that do not commit on click. A stale
// index is looked up again; words that are not candidates are ignored.
func (h *Host) CandidateClicked(word string, index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.candidates) || h.candidates[index] != word {
		index = slices.Index(h.candidates, word)
	}
	if word == "" || index < 0 {
		return
	}
	hd := h.manager.Handler()

	if !hd.CommitWhenCandidateClicked() && !h.predicting {
		h.preedit = []rune(word)
		h.cursor = -1
		if e := h.manager.Engine(); e != nil {
			e.ReselectString(word)
		}
		h.candidates = nil
		h.sendPreedit()
		h.hideWidget()
		return
	}
	h.commitCandidate(word, index, hd.AddSpaceWhenCandidateCommitted())
}

// Close stops the timers and releases the engines.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.stopBackspace()
	h.stopCycle()
	return h.manager.Close()
}

// switchObserver runs inside Manager.UpdateLanguage, which the Host only
// calls with its lock held.
type switchObserver struct{ h *Host }

func (o switchObserver) LanguageWillChange(outgoing handler.Handler) {
	h := o.h
	h.stopBackspace()
	h.stopCycle()
	h.hideWidget()
	if len(h.preedit) > 0 {
		if outgoing.CommitPreeditOnReset() {
			h.commitPreedit(false, -1)
		} else {
			h.sink.SendPreeditString("", nil, 0, 0, 0)
		}
	}
	if e := h.manager.Engine(); e != nil {
		e.ClearEngineBuffer()
	}
	outgoing.Reset()
	h.clearState()
}

func (o switchObserver) LanguageChanged(tag string) {
	h := o.h
	if d, ok := h.manager.AbstractEngine().(*engine.Default); ok && !h.watched[d] {
		h.watched[d] = true
		d.OnCorrectionChanged(func(enabled bool) { h.correctionChanged(d, enabled) })
	}
	if e := h.manager.Engine(); e != nil && len(h.layoutKeys) > 0 {
		e.SetKeyboardLayoutKeys(h.layoutKeys)
	}
	h.logger.Info("language active", "language", tag)
	h.updateAutoCaps()
}

// correctionChanged runs inside Manager.ApplySettings with the host lock
// held. Turning correction off flushes the preedit without learning.
func (h *Host) correctionChanged(d *engine.Default, enabled bool) {
	if enabled || h.manager.AbstractEngine() != d {
		return
	}
	if len(h.preedit) > 0 {
		h.commitPreedit(false, -1)
	}
}
