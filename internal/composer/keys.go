package composer

import (
	"time"

	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/keyevent"
)

var backspaceKey = keyevent.New("", keyevent.KeyBackspace)

// HandleKeyPress handles the press half of a key. Holding backspace starts
// auto-repeat after the configured delay.
func (h *Host) HandleKeyPress(ev keyevent.KeyEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.metrics.RecordKeyEvent()

	before := string(h.preedit)
	if h.manager.Handler().HandleKeyPress(ev, composition{h}) {
		h.intercepted(before)
		return
	}
	if ev.SpecialKey() == keyevent.KeyBackspace {
		h.stopBackspace()
		h.backspaceHeld = true
		h.backspaceRepeated = false
		h.armBackspace(h.backspaceDelay)
	}
}

// HandleKeyRelease handles the release half of a key.
func (h *Host) HandleKeyRelease(ev keyevent.KeyEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if ev.SpecialKey() == keyevent.KeyBackspace {
		h.stopBackspace()
	}
	before := string(h.preedit)
	if h.manager.Handler().HandleKeyRelease(ev, composition{h}) {
		h.intercepted(before)
	}
}

// HandleKeyClick applies a completed key activation. It follows the release
// of the same key.
func (h *Host) HandleKeyClick(ev keyevent.KeyEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	if ev.SpecialKey() == keyevent.KeyBackspace && h.backspaceRepeated {
		// The repeat already deleted while the key was held.
		h.backspaceRepeated = false
		return
	}

	hd := h.manager.Handler()
	before := string(h.preedit)
	if hd.HandleKeyClick(ev, composition{h}) {
		h.intercepted(before)
		h.updateAutoCaps()
		return
	}

	switch ev.SpecialKey() {
	case keyevent.KeyBackspace:
		h.backspace()
		return
	case keyevent.KeyCycleSet:
		h.cycleKey(ev)
		return
	}

	if h.cycle.TimerArmed {
		h.finishCycle()
	}

	switch ev.SpecialKey() {
	case keyevent.KeyShift, keyevent.KeySym, keyevent.KeySwitch, keyevent.KeyLayoutMenu,
		keyevent.KeyOnOffToggle, keyevent.KeyClose:
		return
	case keyevent.KeyCommit:
		if len(h.preedit) > 0 {
			h.commitPreedit(true, -1)
			h.updateAutoCaps()
		}
		return
	case keyevent.KeyLeft, keyevent.KeyRight, keyevent.KeyUp, keyevent.KeyDown,
		keyevent.KeyCopy, keyevent.KeyPaste:
		h.flushAndForward(ev)
		return
	}

	if ev.Modifiers().Has(keyevent.ModControl) || ev.Modifiers().Has(keyevent.ModAlt) || ev.Modifiers().Has(keyevent.ModMeta) {
		h.flushAndForward(ev)
		return
	}

	if !h.correctionEnabled() {
		h.commitDirect(ev)
		return
	}
	if ev.IsWhitespaceCommit() {
		h.whitespace(ev)
		return
	}
	if !ev.IsPrintable() {
		h.flushAndForward(ev)
		return
	}
	h.insertRunes([]rune(ev.Text()))
}

func (h *Host) flushAndForward(ev keyevent.KeyEvent) {
	if len(h.preedit) > 0 {
		h.commitPreedit(false, -1)
	}
	h.sink.SendKeyEvent(ev)
	h.updateAutoCaps()
}

// commitDirect is the path without correction: the pending preedit is
// flushed verbatim and the key goes straight to the application.
func (h *Host) commitDirect(ev keyevent.KeyEvent) {
	if len(h.preedit) > 0 {
		h.commitPreedit(false, -1)
	}
	switch text := ev.CommitText(); {
	case ev.IsReturn():
		h.sink.SendKeyEvent(ev)
	case text != "":
		h.sink.SendCommitString(text, 0, 0, -1)
		h.metrics.RecordCommit()
	default:
		h.sink.SendKeyEvent(ev)
	}
	h.updateAutoCaps()
}

func (h *Host) whitespace(ev keyevent.KeyEvent) {
	hd := h.manager.Handler()
	ae := h.manager.AbstractEngine()

	if h.widget && ae != nil && !h.predicting {
		switch ae.CandidateMode() {
		case engine.WidgetFloating:
			if ae.CorrectionAcceptedWithSpace() && hd.CorrectionAcceptedWithSpaceEnabled() &&
				h.manager.Settings().CorrectionWithSpace && len(h.candidates) > 1 {
				h.acceptSuggestion(ev)
				return
			}
		case engine.WidgetList:
			if ev.IsSpace() {
				return
			}
		}
	}

	if len(h.preedit) > 0 {
		appCursor := -1
		if h.cursor >= 0 && h.cursor < len(h.preedit) {
			if _, _, ok := h.sink.SurroundingText(); ok {
				appCursor = h.cursor
			}
		}
		h.commitPreedit(true, appCursor)
	} else {
		h.clearPrediction()
	}

	if ev.IsReturn() {
		h.sink.SendKeyEvent(ev)
	} else {
		h.sink.SendCommitString(ev.CommitText(), 0, 0, -1)
		h.metrics.RecordCommit()
	}
	h.updateAutoCaps()
	h.predict()
}

// acceptSuggestion commits the floating suggestion in place of the typed
// word. The whitespace key that accepted it is appended.
func (h *Host) acceptSuggestion(ev keyevent.KeyEvent) {
	word := h.candidates[1]
	if ev.IsReturn() {
		h.commitCandidate(word, 1, false)
		h.sink.SendKeyEvent(ev)
	} else {
		h.commitCandidate(word+ev.CommitText(), 1, false)
	}
	h.updateAutoCaps()
	h.predict()
}

func (h *Host) backspace() {
	h.metrics.RecordBackspace()
	h.deletePreedit()
	h.updateAutoCaps()
}

func (h *Host) deletePreedit() {
	n := len(h.preedit)
	switch {
	case n == 0:
		h.clearPrediction()
		h.sink.SendKeyEvent(backspaceKey)
		return
	case h.cursor == 0:
		h.commitPreedit(false, 0)
		h.sink.SendKeyEvent(backspaceKey)
		return
	case h.cursor < 0 || h.cursor >= n:
		h.preedit = h.preedit[:n-1]
		if h.cursor >= 0 {
			h.cursor = n - 1
		}
	default:
		h.preedit = append(h.preedit[:h.cursor-1], h.preedit[h.cursor:]...)
		h.cursor--
	}
	h.stopCycle()

	if len(h.preedit) == 0 {
		if e := h.manager.Engine(); e != nil {
			e.ClearEngineBuffer()
		}
		h.sink.SendPreeditString("", nil, 0, 0, 0)
		h.metrics.SetPreeditLength(0)
		h.candidates = nil
		h.cursor = -1
		h.hideWidget()
		return
	}
	h.syncEngine()
	h.refreshCandidates()
	h.sendPreedit()
	h.updateWidget()
}

func (h *Host) armBackspace(d time.Duration) {
	gen := h.backspaceGen
	h.backspaceTimer = h.sched.AfterFunc(d, func() { h.backspaceTick(gen) })
}

func (h *Host) backspaceTick(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || gen != h.backspaceGen || !h.backspaceHeld {
		return
	}
	h.backspaceRepeated = true
	if !h.manager.Handler().HandleKeyClick(backspaceKey, composition{h}) {
		h.metrics.RecordBackspace()
		h.deletePreedit()
	}
	h.updateAutoCaps()
	h.armBackspace(h.backspaceRepeat)
}

func (h *Host) stopBackspace() {
	h.backspaceGen++
	h.backspaceHeld = false
	if h.backspaceTimer != nil {
		h.backspaceTimer.Stop()
		h.backspaceTimer = nil
	}
}

// cycleKey rotates through the alternatives carried in the key text. A
// different key, or the timeout, fixes the pending character.
func (h *Host) cycleKey(ev keyevent.KeyEvent) {
	alts := []rune(ev.Text())
	if len(alts) == 0 {
		return
	}

	if h.cycle.TimerArmed && h.cycle.Prev.SameKey(ev) && h.cycle.offset < len(h.preedit) {
		h.stopCycleTimer()
		h.cycle.Index = (h.cycle.Index + 1) % len(alts)
		h.preedit[h.cycle.offset] = alts[h.cycle.Index]
		h.syncEngine()
		h.refreshCandidates()
		h.sendPreedit()
		h.updateWidget()
		h.armCycle()
		return
	}

	if h.cycle.TimerArmed {
		h.finishCycle()
	}
	h.cycle = CycleKeyState{
		CycleText:  ev.Text(),
		Prev:       ev,
		TimerArmed: true,
		offset:     h.insertionPoint(),
	}
	h.insertRunes(alts[:1])
	h.armCycle()
}

func (h *Host) armCycle() {
	gen := h.cycleGen
	h.cycleTimer = h.sched.AfterFunc(h.cycleTimeout, func() { h.cycleExpired(gen) })
}

func (h *Host) cycleExpired(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || gen != h.cycleGen || !h.cycle.TimerArmed {
		return
	}
	h.finishCycle()
	h.updateAutoCaps()
}

// finishCycle commits the preedit holding the pending character.
func (h *Host) finishCycle() {
	h.stopCycle()
	if len(h.preedit) > 0 {
		h.commitPreedit(false, -1)
	}
}

func (h *Host) stopCycleTimer() {
	h.cycleGen++
	if h.cycleTimer != nil {
		h.cycleTimer.Stop()
		h.cycleTimer = nil
	}
}

// intercepted records a key consumed by the handler. A pending cycle
// character the handler rewrote is fixed where it stands.
func (h *Host) intercepted(before string) {
	h.metrics.RecordHandlerIntercept()
	if !h.cycle.TimerArmed || string(h.preedit) == before {
		return
	}
	h.stopCycle()
	if len(h.preedit) > 0 {
		h.sendPreedit()
	}
}

func (h *Host) stopCycle() {
	h.stopCycleTimer()
	h.cycle.TimerArmed = false
}
