// Package ibus exposes the composition core as an IBus input method engine.
// Key events arrive over D-Bus and preedit, commit and lookup table updates
// leave as engine signals.
package ibus

import (
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"

	"maliitkeyboard/internal/composer"
	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/keyevent"
	"maliitkeyboard/internal/logging"
)

// D-Bus names.
const (
	EngineInterface  = "org.freedesktop.IBus.Engine"
	FactoryInterface = "org.freedesktop.IBus.Factory"
	FactoryPath      = "/org/freedesktop/IBus/Factory"
	BusName          = "org.freedesktop.IBus.MaliitKeyboard"
)

// CapSurroundingText is the client capability bit for surrounding text.
const CapSurroundingText uint32 = 1 << 5

// DefaultPageSize is the number of candidates per lookup table page.
const DefaultPageSize = 9

// ErrUnsupported is returned by Serve on platforms without IBus.
var ErrUnsupported = errors.New("ibus: unsupported platform")

// Emitter sends D-Bus signals. *dbus.Conn satisfies it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Composer is the part of composer.Host the engine drives.
type Composer interface {
	HandleKeyPress(ev keyevent.KeyEvent)
	HandleKeyRelease(ev keyevent.KeyEvent)
	HandleKeyClick(ev keyevent.KeyEvent)
	CandidateClicked(word string, index int)
	FocusIn()
	FocusOut()
	Reset()
}

// Options configures an Engine.
type Options struct {
	Logger *logging.Logger
	// PageSize defaults to DefaultPageSize.
	PageSize int
}

// Engine is one IBus engine object. It is the TextSink and CandidateUI of
// the composer it drives; composer calls arrive while a D-Bus method is
// being handled, so the engine lock is never held across them.
type Engine struct {
	mu sync.Mutex

	logger   *logging.Logger
	emitter  Emitter
	path     dbus.ObjectPath
	composer Composer

	enabled bool
	caps    uint32

	surrounding     []rune
	cursor          int
	haveSurrounding bool

	candidates []string
	pageSize   int
	page       int
}

var (
	_ composer.TextSink    = (*Engine)(nil)
	_ composer.CandidateUI = (*Engine)(nil)
)

// NewEngine creates an engine with no bus connection or composer.
func NewEngine(opts Options) *Engine {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Engine{
		logger:   logging.OrDefault(opts.Logger).WithComponent("ibus"),
		pageSize: size,
	}
}

// Attach sets the composer that receives key events.
func (e *Engine) Attach(c Composer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.composer = c
}

// Bind sets where signals are emitted.
func (e *Engine) Bind(emitter Emitter, path dbus.ObjectPath) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitter = emitter
	e.path = path
}

func (e *Engine) emit(name string, values ...interface{}) {
	e.mu.Lock()
	emitter, path := e.emitter, e.path
	e.mu.Unlock()
	if emitter == nil {
		return
	}
	if err := emitter.Emit(path, EngineInterface+"."+name, values...); err != nil {
		e.logger.Warn("emit failed", "signal", name, "error", err)
	}
}

func (e *Engine) target() Composer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return nil
	}
	return e.composer
}

// ProcessKeyEvent feeds a key to the composer. A press is handled as
// HandleKeyPress, a release as HandleKeyRelease followed by HandleKeyClick.
func (e *Engine) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	c := e.target()
	if c == nil {
		return false, nil
	}
	ev, ok := KeyEventFor(keyval, keycode, state)
	if !ok {
		return false, nil
	}
	if state&ReleaseMask != 0 {
		c.HandleKeyRelease(ev.WithPhase(keyevent.PhaseRelease))
		c.HandleKeyClick(ev)
	} else {
		c.HandleKeyPress(ev)
	}
	return true, nil
}

func (e *Engine) FocusIn() *dbus.Error {
	if c := e.target(); c != nil {
		c.FocusIn()
	}
	return nil
}

func (e *Engine) FocusOut() *dbus.Error {
	if c := e.target(); c != nil {
		c.FocusOut()
	}
	e.mu.Lock()
	e.haveSurrounding = false
	e.surrounding = nil
	e.cursor = 0
	e.mu.Unlock()
	return nil
}

func (e *Engine) Reset() *dbus.Error {
	if c := e.target(); c != nil {
		c.Reset()
	}
	return nil
}

func (e *Engine) Enable() *dbus.Error {
	e.mu.Lock()
	e.enabled = true
	e.mu.Unlock()
	e.emit("RequireSurroundingText")
	return nil
}

func (e *Engine) Disable() *dbus.Error {
	if c := e.target(); c != nil {
		c.Reset()
	}
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetCapabilities(caps uint32) *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caps = caps
	if caps&CapSurroundingText == 0 {
		e.haveSurrounding = false
	}
	return nil
}

// SetSurroundingText records the text around the client cursor.
func (e *Engine) SetSurroundingText(v dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	s, ok := textValue(v)
	if !ok {
		e.logger.Debug("unreadable surrounding text", "signature", v.Signature().String())
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surrounding = []rune(s)
	e.cursor = int(cursorPos)
	if e.cursor > len(e.surrounding) {
		e.cursor = len(e.surrounding)
	}
	e.haveSurrounding = true
	return nil
}

// CandidateClicked maps a click on the visible page to the full list.
func (e *Engine) CandidateClicked(index, button, state uint32) *dbus.Error {
	e.mu.Lock()
	abs := e.page*e.pageSize + int(index)
	var word string
	if abs < len(e.candidates) {
		word = e.candidates[abs]
	}
	e.mu.Unlock()

	if c := e.target(); c != nil && word != "" {
		c.CandidateClicked(word, abs)
	}
	return nil
}

func (e *Engine) PageUp() *dbus.Error {
	e.turnPage(-1)
	return nil
}

func (e *Engine) PageDown() *dbus.Error {
	e.turnPage(1)
	return nil
}

func (e *Engine) CursorUp() *dbus.Error   { return nil }
func (e *Engine) CursorDown() *dbus.Error { return nil }

func (e *Engine) SetCursorLocation(x, y, w, h int32) *dbus.Error   { return nil }
func (e *Engine) SetContentType(purpose, hints uint32) *dbus.Error { return nil }
func (e *Engine) PropertyActivate(name string, state uint32) *dbus.Error {
	return nil
}

func (e *Engine) turnPage(delta int) {
	e.mu.Lock()
	next := e.page + delta
	if next < 0 || next*e.pageSize >= len(e.candidates) {
		e.mu.Unlock()
		return
	}
	e.page = next
	table := newLookupTable(e.candidates, uint32(e.pageSize), uint32(next*e.pageSize))
	e.mu.Unlock()
	e.emit("UpdateLookupTable", table, true)
}

// SendPreeditString implements composer.TextSink.
func (e *Engine) SendPreeditString(s string, format []composer.PreeditFormat, replaceStart, replaceLength, cursor int) {
	if replaceLength > 0 {
		e.deleteSurrounding(replaceStart, replaceLength)
	}
	attrs := make([]dbus.Variant, 0, len(format))
	for _, f := range format {
		start, end := uint32(f.Start), uint32(f.Start+f.Length)
		switch f.Style {
		case composer.PreeditNoCandidates:
			attrs = append(attrs,
				newAttribute(attrUnderline, underlineSingle, start, end),
				newAttribute(attrForeground, colorUnknownWord, start, end))
		case composer.PreeditKeyPress:
			attrs = append(attrs, newAttribute(attrBackground, colorPendingKey, start, end))
		default:
			attrs = append(attrs, newAttribute(attrUnderline, underlineSingle, start, end))
		}
	}
	e.emit("UpdatePreeditText", newText(s, attrs...), uint32(cursor), s != "", preeditCommit)
}

// SendCommitString implements composer.TextSink. A cursor inside the text
// is reached by forwarding Left presses after the commit.
func (e *Engine) SendCommitString(s string, replaceStart, replaceLength, cursor int) {
	if replaceLength > 0 {
		e.deleteSurrounding(replaceStart, replaceLength)
	}
	e.emit("CommitText", newText(s))

	runes := []rune(s)
	e.mu.Lock()
	if e.haveSurrounding {
		next := make([]rune, 0, len(e.surrounding)+len(runes))
		next = append(next, e.surrounding[:e.cursor]...)
		next = append(next, runes...)
		next = append(next, e.surrounding[e.cursor:]...)
		e.surrounding = next
		e.cursor += len(runes)
	}
	e.mu.Unlock()

	if cursor >= 0 && cursor < len(runes) {
		left := keyevent.New("", keyevent.KeyLeft)
		for i := cursor; i < len(runes); i++ {
			e.SendKeyEvent(left)
		}
	}
}

// SendKeyEvent implements composer.TextSink with a press and release pair.
func (e *Engine) SendKeyEvent(ev keyevent.KeyEvent) {
	sym := keysymFor(ev)
	if sym == 0 {
		return
	}
	code, _ := ev.HardwareKey()
	state := stateFrom(ev.Modifiers())
	e.emit("ForwardKeyEvent", sym, code, state)
	e.emit("ForwardKeyEvent", sym, code, state|ReleaseMask)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.haveSurrounding {
		return
	}
	switch ev.SpecialKey() {
	case keyevent.KeyBackspace:
		if e.cursor > 0 {
			e.surrounding = append(e.surrounding[:e.cursor-1], e.surrounding[e.cursor:]...)
			e.cursor--
		}
	case keyevent.KeyLeft:
		if e.cursor > 0 {
			e.cursor--
		}
	case keyevent.KeyRight:
		if e.cursor < len(e.surrounding) {
			e.cursor++
		}
	}
}

// SurroundingText implements composer.TextSink.
func (e *Engine) SurroundingText() (string, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.haveSurrounding {
		return "", 0, false
	}
	return string(e.surrounding), e.cursor, true
}

func (e *Engine) deleteSurrounding(offset, length int) {
	e.emit("DeleteSurroundingText", int32(offset), uint32(length))

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.haveSurrounding {
		return
	}
	start := e.cursor + offset
	end := start + length
	if start < 0 || end > len(e.surrounding) || start > end {
		return
	}
	e.surrounding = append(e.surrounding[:start], e.surrounding[end:]...)
	if e.cursor > start {
		e.cursor = max(start, e.cursor-length)
	}
}

// SetCandidates implements composer.CandidateUI.
func (e *Engine) SetCandidates(candidates []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candidates = append([]string(nil), candidates...)
	e.page = 0
}

// ShowCorrectionWidget implements composer.CandidateUI. Both widget modes
// map to the IBus lookup table.
func (e *Engine) ShowCorrectionWidget(mode engine.WidgetMode) {
	e.mu.Lock()
	table := newLookupTable(e.candidates, uint32(e.pageSize), uint32(e.page*e.pageSize))
	e.mu.Unlock()
	e.logger.Debug("lookup table shown", "mode", mode.String())
	e.emit("UpdateLookupTable", table, true)
}

// HideCorrectionWidget implements composer.CandidateUI.
func (e *Engine) HideCorrectionWidget() {
	e.emit("HideLookupTable")
}
