package composer

import (
	"time"
	"unicode"

	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/keyevent"
)

// composition exposes the host state to handlers. It is only used while the
// host lock is held.
type composition struct{ h *Host }

func (c composition) Preedit() string { return string(c.h.preedit) }
func (c composition) Cursor() int     { return c.h.cursor }

func (c composition) SurroundingBeforeCursor() string {
	text, cursor, ok := c.h.sink.SurroundingText()
	if !ok {
		return ""
	}
	return beforeCursor(text, cursor)
}

func (c composition) SetPreedit(text string, cursor int) {
	h := c.h
	h.preedit = []rune(text)
	h.cursor = cursor
	if cursor < 0 || cursor >= len(h.preedit) {
		h.cursor = -1
	}
	h.syncEngine()
	h.refreshCandidates()
	h.sendPreedit()
	h.updateWidget()
}

// Commit replaces the preedit with text. The handler keeps its own state.
func (c composition) Commit(text string) {
	h := c.h
	if e := h.manager.Engine(); e != nil {
		e.ClearEngineBuffer()
	}
	h.sink.SendCommitString(text, 0, 0, -1)
	h.metrics.RecordCommit()
	h.preedit = nil
	h.cursor = -1
	h.candidates = nil
	h.hideWidget()
	h.metrics.SetPreeditLength(0)
}

func (c composition) SendKey(ev keyevent.KeyEvent) { c.h.sink.SendKeyEvent(ev) }

func beforeCursor(text string, cursor int) string {
	runes := []rune(text)
	if cursor < 0 || cursor > len(runes) {
		cursor = len(runes)
	}
	return string(runes[:cursor])
}

func (h *Host) correctionEnabled() bool {
	return h.manager.Settings().CorrectionEnabled && h.manager.Handler().HasErrorCorrection()
}

// insertionPoint is the rune offset at which typed text lands.
func (h *Host) insertionPoint() int {
	if h.cursor < 0 || h.cursor > len(h.preedit) {
		return len(h.preedit)
	}
	return h.cursor
}

// insertRunes inserts rs at the cursor. At the tail the engine is fed
// incrementally, elsewhere it is resynchronised with the whole preedit.
func (h *Host) insertRunes(rs []rune) {
	e := h.manager.Engine()
	hd := h.manager.Handler()

	if len(h.preedit) == 0 {
		h.clearPrediction()
		if e != nil && hd.HasContext() {
			if text, cursor, ok := h.sink.SurroundingText(); ok {
				e.SetContext(text, cursor)
			}
		}
	}

	at := h.insertionPoint()
	if at == len(h.preedit) {
		h.preedit = append(h.preedit, rs...)
		h.cursor = -1
		if e != nil {
			for _, r := range rs {
				if key, ok := h.layoutKey(r); ok && hd.SupportTouchPointAccuracy() {
					e.TapKeyboard(key.Center, unicode.IsUpper(r), r)
				} else {
					e.AppendCharacter(r)
				}
			}
		}
	} else {
		next := make([]rune, 0, len(h.preedit)+len(rs))
		next = append(next, h.preedit[:at]...)
		next = append(next, rs...)
		next = append(next, h.preedit[at:]...)
		h.preedit = next
		h.cursor = at + len(rs)
		h.syncEngine()
	}

	h.refreshCandidates()
	h.sendPreedit()
	h.updateWidget()
	h.setAutoCaps(false)
}

func (h *Host) layoutKey(r rune) (correction.LayoutKey, bool) {
	lower := unicode.ToLower(r)
	for _, k := range h.layoutKeys {
		if unicode.ToLower(k.Rune) == lower {
			return k, true
		}
	}
	return correction.LayoutKey{}, false
}

func (h *Host) syncEngine() {
	e := h.manager.Engine()
	if e == nil {
		return
	}
	if len(h.preedit) == 0 {
		e.ClearEngineBuffer()
		return
	}
	e.ReselectString(string(h.preedit))
}

func (h *Host) refreshCandidates() {
	h.predicting = false
	e := h.manager.Engine()
	if e == nil || len(h.preedit) == 0 || !h.manager.Handler().HasErrorCorrection() {
		h.candidates = nil
		return
	}
	start := time.Now()
	h.candidates = e.Candidates(0, 0)
	h.metrics.RecordCandidateQuery(time.Since(start))
}

func (h *Host) sinkCursor() int {
	if h.cursor < 0 {
		return len(h.preedit)
	}
	return h.cursor
}

func (h *Host) preeditFormat() []PreeditFormat {
	n := len(h.preedit)
	if n == 0 {
		return nil
	}
	style := PreeditDefault
	if e := h.manager.Engine(); e != nil && h.correctionEnabled() {
		if len(h.candidates) == 0 || (len(h.candidates) == 1 && e.CandidateSource(0) == correction.DictionaryNone) {
			style = PreeditNoCandidates
		}
	}
	format := []PreeditFormat{{Start: 0, Length: n, Style: style}}
	if h.cycle.TimerArmed && h.cycle.offset < n {
		format = append(format, PreeditFormat{Start: h.cycle.offset, Length: 1, Style: PreeditKeyPress})
	}
	return format
}

func (h *Host) sendPreedit() {
	h.sink.SendPreeditString(string(h.preedit), h.preeditFormat(), 0, 0, h.sinkCursor())
	h.metrics.SetPreeditLength(len(h.preedit))
}

// updateWidget shows the list whenever there are candidates. The floating
// suggestion appears only for an unknown word typed at the tail that has
// alternatives.
func (h *Host) updateWidget() {
	e := h.manager.Engine()
	ae := h.manager.AbstractEngine()
	if e == nil || ae == nil || len(h.candidates) == 0 {
		h.hideWidget()
		return
	}
	if ae.CandidateMode() == engine.WidgetList {
		h.showWidget(engine.WidgetList)
		return
	}
	if h.cursor < 0 && len(h.candidates) > 1 && e.CandidateSource(0) == correction.DictionaryNone {
		h.showWidget(engine.WidgetFloating)
		return
	}
	h.hideWidget()
}

func (h *Host) showWidget(mode engine.WidgetMode) {
	h.widget = true
	if h.ui != nil {
		h.ui.SetCandidates(append([]string(nil), h.candidates...))
		h.ui.ShowCorrectionWidget(mode)
	}
}

func (h *Host) hideWidget() {
	if !h.widget {
		return
	}
	h.widget = false
	if h.ui != nil {
		h.ui.HideCorrectionWidget()
	}
}

// commitPreedit commits the preedit as typed. appCursor places the
// application cursor inside the committed text, -1 leaves it at the end.
func (h *Host) commitPreedit(learn bool, appCursor int) {
	text := string(h.preedit)
	if e := h.manager.Engine(); e != nil {
		if learn {
			e.SetSuggestedCandidateIndex(-1)
			e.SaveAndClearEngineBuffer()
		} else {
			e.ClearEngineBuffer()
		}
	}
	h.sink.SendCommitString(text, 0, 0, appCursor)
	h.metrics.RecordCommit()
	h.stopCycle()
	h.manager.Handler().Reset()
	h.clearState()
}

// commitCandidate commits a chosen candidate and lets the engine learn it.
func (h *Host) commitCandidate(text string, index int, addSpace bool) {
	if e := h.manager.Engine(); e != nil {
		if len(h.candidates) > 1 {
			e.SetSuggestedCandidateIndex(index)
		}
		e.SaveAndClearEngineBuffer()
	}
	if addSpace {
		text += " "
	}
	h.sink.SendCommitString(text, 0, 0, -1)
	h.metrics.RecordCommit()
	h.stopCycle()
	h.manager.Handler().Reset()
	h.clearState()
	h.updateAutoCaps()
}

func (h *Host) clearState() {
	h.preedit = nil
	h.cursor = -1
	h.candidates = nil
	h.predicting = false
	h.hideWidget()
	h.metrics.SetPreeditLength(0)
}

// predict offers next-word candidates after a committed word.
func (h *Host) predict() {
	e := h.manager.Engine()
	ae := h.manager.AbstractEngine()
	if e == nil || ae == nil || len(h.preedit) > 0 || !h.manager.Settings().NextWordPrediction {
		return
	}
	if h.manager.Handler().HasContext() {
		if text, cursor, ok := h.sink.SurroundingText(); ok {
			e.SetContext(text, cursor)
		}
	}
	start := time.Now()
	cands := e.Candidates(0, 0)
	h.metrics.RecordCandidateQuery(time.Since(start))
	if len(cands) == 0 {
		return
	}
	h.candidates = cands
	h.predicting = true
	h.showWidget(engine.WidgetList)
}

func (h *Host) clearPrediction() {
	if !h.predicting {
		return
	}
	h.predicting = false
	h.candidates = nil
	h.hideWidget()
}

func (h *Host) updateAutoCaps() {
	hd := h.manager.Handler()
	active := false
	if h.autoCapsEnabled && hd.HasAutoCaps() && len(h.preedit) == 0 {
		if text, cursor, ok := h.sink.SurroundingText(); ok {
			active = hd.AutoCapsTrigger(beforeCursor(text, cursor))
		}
	}
	h.setAutoCaps(active)
}

// setAutoCaps runs the callback with the host lock held.
func (h *Host) setAutoCaps(active bool) {
	if active == h.autoCaps {
		return
	}
	h.autoCaps = active
	if h.onAutoCaps != nil {
		h.onAutoCaps(active)
	}
}
