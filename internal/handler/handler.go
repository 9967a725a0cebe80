// Package handler implements per-language composition policy: which
// capabilities a language has, when auto-caps fires, and which keys a
// language composes itself instead of leaving them to the generic pipeline.
//
// The set of handlers is closed. Handler carries an unexported method so
// only the types in this package satisfy it, and Kind identifies the
// variant for exhaustive switches.
package handler

import (
	"maliitkeyboard/internal/keyevent"
)

// Kind identifies a handler variant.
type Kind int

const (
	KindDefault Kind = iota
	KindEnglish
	KindKorean
	KindTonal
)

func (k Kind) String() string {
	switch k {
	case KindEnglish:
		return "english"
	case KindKorean:
		return "korean"
	case KindTonal:
		return "tonal"
	default:
		return "default"
	}
}

// Composition is the slice of composition state a handler may read and
// change while handling one key. Handlers must not keep it after the call
// returns.
type Composition interface {
	// Preedit returns the text being composed.
	Preedit() string
	// Cursor returns the cursor as a rune offset into the preedit, or -1 when
	// it sits at the tail.
	Cursor() int
	// SurroundingBeforeCursor returns committed text before the insertion
	// point, if the host can read it.
	SurroundingBeforeCursor() string
	// SetPreedit replaces the preedit. A cursor of -1 places it at the tail.
	SetPreedit(text string, cursor int)
	// Commit sends text in place of the current preedit and clears it.
	Commit(text string)
	// SendKey forwards a key event downstream unchanged.
	SendKey(ev keyevent.KeyEvent)
}

// Handler is the language policy consulted by the composition core.
type Handler interface {
	Kind() Kind

	HasAutoCaps() bool
	HasErrorCorrection() bool
	HasContext() bool
	CursorCanMoveInsidePreedit() bool
	AcceptPreeditInjection() bool
	CorrectionAcceptedWithSpaceEnabled() bool
	IsComposingInputMethod() bool
	CommitWhenCandidateClicked() bool
	SupportTouchPointAccuracy() bool
	AddSpaceWhenCandidateCommitted() bool
	// CommitPreeditOnReset reports whether an interrupted preedit is
	// committed rather than discarded.
	CommitPreeditOnReset() bool

	// AutoCapsTrigger reports whether the text before the cursor ends a
	// sentence, so the next letter should be capitalised.
	AutoCapsTrigger(textBeforeCursor string) bool

	// The key hooks return true when the handler consumed the key.
	HandleKeyPress(ev keyevent.KeyEvent, c Composition) bool
	HandleKeyRelease(ev keyevent.KeyEvent, c Composition) bool
	HandleKeyClick(ev keyevent.KeyEvent, c Composition) bool

	// Reset drops handler-local composition state after the core committed
	// or discarded the preedit.
	Reset()

	Activate()
	Deactivate()
	Active() bool

	sealed()
}

var (
	_ Handler = (*Default)(nil)
	_ Handler = (*English)(nil)
	_ Handler = (*Tonal)(nil)
	_ Handler = (*Korean)(nil)
)

// ForLanguage returns the built-in handler for a base language tag, or nil
// when the language uses the shared default.
func ForLanguage(base string) Handler {
	switch base {
	case "en":
		return NewEnglish()
	case "ko":
		return NewKorean(nil)
	case "vi", "th":
		return NewTonal(base)
	default:
		return nil
	}
}
