// Package composer is the composition core. Host owns the preedit buffer,
// the candidate list, backspace auto-repeat and multi-tap cycle keys, and
// sequences the language handler, the correction engine and the text sink
// for every key event.
package composer

import (
	"time"

	"maliitkeyboard/internal/engine"
	"maliitkeyboard/internal/keyevent"
)

// PreeditStyle is the presentation hint for a preedit span.
type PreeditStyle int

const (
	PreeditDefault PreeditStyle = iota
	// PreeditNoCandidates marks a word the correction engine does not know
	// and has no alternatives for.
	PreeditNoCandidates
	// PreeditKeyPress marks a pending multi-tap character.
	PreeditKeyPress
)

// PreeditFormat styles Length runes of the preedit starting at Start.
type PreeditFormat struct {
	Start  int
	Length int
	Style  PreeditStyle
}

// TextSink receives the output of composition, typically the input method
// connection to the focused application.
type TextSink interface {
	// SendPreeditString shows text as the uncommitted preedit. cursor is a
	// rune offset into text.
	SendPreeditString(text string, format []PreeditFormat, replaceStart, replaceLength, cursor int)
	// SendCommitString commits text, replacing the preedit. A cursor of -1
	// leaves the application cursor after the text.
	SendCommitString(text string, replaceStart, replaceLength, cursor int)
	// SendKeyEvent forwards a key the core does not translate into text.
	SendKeyEvent(ev keyevent.KeyEvent)
	// SurroundingText returns the committed text around the insertion point
	// and the cursor as a rune offset into it. ok is false when the
	// application does not report it.
	SurroundingText() (text string, cursor int, ok bool)
}

// CandidateUI presents correction candidates. Clicks are reported back
// through Host.CandidateClicked.
type CandidateUI interface {
	SetCandidates(candidates []string)
	ShowCorrectionWidget(mode engine.WidgetMode)
	HideCorrectionWidget()
}

// PreeditState is a snapshot of the composition buffer.
type PreeditState struct {
	Text string
	// Cursor is a rune offset into Text, or -1 at the tail.
	Cursor     int
	Candidates []string
}

// CycleKeyState tracks a pending multi-tap key.
type CycleKeyState struct {
	// CycleText holds the alternatives of the key, one rune each.
	CycleText string
	Index     int
	Prev      keyevent.KeyEvent
	// TimerArmed is true while the pending character may still rotate.
	TimerArmed bool

	// offset is the rune position of the pending character in the preedit.
	offset int
}

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Tests substitute a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timer.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
