package handler

import (
	"regexp"

	"maliitkeyboard/internal/keyevent"
)

// sentenceEnd matches sentence punctuation followed by trailing spaces.
var sentenceEnd = regexp.MustCompile(`[.?!¡¿]\s+$`)

// Default is the policy for languages without special composition rules.
// It never intercepts keys.
type Default struct {
	active bool
}

// NewDefault returns the shared default handler.
func NewDefault() *Default {
	return &Default{}
}

func (*Default) sealed() {}

func (*Default) Kind() Kind { return KindDefault }

func (*Default) HasAutoCaps() bool                        { return true }
func (*Default) HasErrorCorrection() bool                 { return true }
func (*Default) HasContext() bool                         { return true }
func (*Default) CursorCanMoveInsidePreedit() bool         { return true }
func (*Default) AcceptPreeditInjection() bool             { return true }
func (*Default) CorrectionAcceptedWithSpaceEnabled() bool { return true }
func (*Default) IsComposingInputMethod() bool             { return false }
func (*Default) CommitWhenCandidateClicked() bool         { return true }
func (*Default) SupportTouchPointAccuracy() bool          { return true }
func (*Default) AddSpaceWhenCandidateCommitted() bool     { return true }
func (*Default) CommitPreeditOnReset() bool               { return true }

// AutoCapsTrigger fires at the start of a field and after sentence-ending
// punctuation followed by whitespace.
func (*Default) AutoCapsTrigger(text string) bool {
	return text == "" || sentenceEnd.MatchString(text)
}

func (*Default) HandleKeyPress(keyevent.KeyEvent, Composition) bool   { return false }
func (*Default) HandleKeyRelease(keyevent.KeyEvent, Composition) bool { return false }
func (*Default) HandleKeyClick(keyevent.KeyEvent, Composition) bool   { return false }

func (*Default) Reset() {}

func (d *Default) Activate()    { d.active = true }
func (d *Default) Deactivate()  { d.active = false }
func (d *Default) Active() bool { return d.active }

// quotedSentenceEnd matches sentence punctuation, a closing quote, then
// trailing spaces.
var quotedSentenceEnd = regexp.MustCompile(`[.?!¡¿]['"‘’“”]\s+$`)

// English adds quoted sentence ends to the default auto-caps trigger.
type English struct {
	Default
}

// NewEnglish returns the English handler.
func NewEnglish() *English {
	return &English{}
}

func (*English) Kind() Kind { return KindEnglish }

func (e *English) AutoCapsTrigger(text string) bool {
	return e.Default.AutoCapsTrigger(text) || quotedSentenceEnd.MatchString(text)
}
