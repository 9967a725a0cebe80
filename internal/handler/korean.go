package handler

import (
	"maliitkeyboard/internal/hangul"
	"maliitkeyboard/internal/keyevent"
)

// HangulEngine is a jamo compositor. After each AppendCharacter,
// Candidates(0, 0) returns one string: a single character is the syllable
// in progress, two characters are a completed syllable followed by the one
// in progress. hangul.Backspace removes the last jamo.
type HangulEngine interface {
	AppendCharacter(r rune)
	Candidates(start, length int) []string
	ClearEngineBuffer()
}

var _ HangulEngine = (*hangul.Compositor)(nil)

// Korean composes Hangul syllables itself and bypasses word correction.
type Korean struct {
	Default
	engine HangulEngine
}

// NewKorean wraps engine. A nil engine uses a hangul.Compositor.
func NewKorean(engine HangulEngine) *Korean {
	if engine == nil {
		engine = hangul.New()
	}
	return &Korean{engine: engine}
}

func (*Korean) Kind() Kind { return KindKorean }

func (*Korean) HasAutoCaps() bool                        { return false }
func (*Korean) HasErrorCorrection() bool                 { return false }
func (*Korean) HasContext() bool                         { return false }
func (*Korean) CursorCanMoveInsidePreedit() bool         { return false }
func (*Korean) AcceptPreeditInjection() bool             { return false }
func (*Korean) CorrectionAcceptedWithSpaceEnabled() bool { return false }
func (*Korean) IsComposingInputMethod() bool             { return true }
func (*Korean) CommitWhenCandidateClicked() bool         { return false }
func (*Korean) SupportTouchPointAccuracy() bool          { return false }

func (k *Korean) HandleKeyClick(ev keyevent.KeyEvent, c Composition) bool {
	switch ev.SpecialKey() {
	case keyevent.KeyBackspace:
		if c.Preedit() == "" {
			return false
		}
		k.engine.AppendCharacter(hangul.Backspace)
		k.apply(c)
		return true
	case keyevent.KeyShift:
		return false
	case keyevent.KeyNone:
	default:
		k.flush(c)
		return false
	}

	r, ok := ev.Rune()
	if !ok || !hangul.IsJamo(r) {
		k.flush(c)
		return false
	}
	k.engine.AppendCharacter(r)
	k.apply(c)
	return true
}

// apply copies the compositor output into the composition.
func (k *Korean) apply(c Composition) {
	var out []rune
	if cands := k.engine.Candidates(0, 0); len(cands) > 0 {
		out = []rune(cands[0])
	}
	if len(out) == 2 {
		c.Commit(string(out[0]))
		c.SetPreedit(string(out[1]), -1)
		return
	}
	c.SetPreedit(string(out), -1)
}

// flush commits the syllable in progress.
func (k *Korean) flush(c Composition) {
	if p := c.Preedit(); p != "" {
		c.Commit(p)
	}
	k.engine.ClearEngineBuffer()
}

func (k *Korean) Reset() {
	k.engine.ClearEngineBuffer()
}

func (k *Korean) Activate() {
	k.engine.ClearEngineBuffer()
	k.Default.Activate()
}

func (k *Korean) Deactivate() {
	k.engine.ClearEngineBuffer()
	k.Default.Deactivate()
}
