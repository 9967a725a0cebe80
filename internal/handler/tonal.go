package handler

import (
	"unicode"
	"unicode/utf8"

	"maliitkeyboard/internal/keyevent"
)

// Tonal composes Vietnamese tones and checks Thai mark placement.
type Tonal struct {
	Default
	language string
}

// NewTonal returns the handler for "vi" or "th".
func NewTonal(language string) *Tonal {
	return &Tonal{language: language}
}

func (*Tonal) Kind() Kind { return KindTonal }

// Language returns the base language the handler was built for.
func (t *Tonal) Language() string { return t.language }

func (t *Tonal) thai() bool { return t.language == "th" }

func (t *Tonal) HasAutoCaps() bool {
	return !t.thai()
}

// AddSpaceWhenCandidateCommitted is false for Thai, which does not separate
// words with spaces.
func (t *Tonal) AddSpaceWhenCandidateCommitted() bool {
	return !t.thai()
}

func (t *Tonal) HandleKeyClick(ev keyevent.KeyEvent, c Composition) bool {
	if ev.SpecialKey() != keyevent.KeyNone {
		return false
	}
	r, ok := ev.Rune()
	if !ok {
		return false
	}
	if t.thai() {
		return t.thaiMark(r, c)
	}
	return t.vietnamese(r, c)
}

func (t *Tonal) vietnamese(r rune, c Composition) bool {
	preedit := c.Preedit()
	if preedit == "" {
		return false
	}

	if IsVietnameseTone(r) {
		text, cursor, ok := PlaceVietnameseTone(preedit, c.Cursor(), r)
		if !ok {
			return false
		}
		c.SetPreedit(text, cursor)
		return true
	}

	if !unicode.IsLetter(r) || !atTail(preedit, c.Cursor()) {
		return false
	}
	grown := preedit + string(r)
	moved := RepositionVietnameseTone(grown)
	if moved == grown {
		return false
	}
	c.SetPreedit(moved, -1)
	return true
}

func (t *Tonal) thaiMark(r rune, c Composition) bool {
	if !IsThaiMark(r) {
		return false
	}

	preedit := []rune(c.Preedit())
	cursor := c.Cursor()
	if cursor < 0 || cursor > len(preedit) {
		cursor = len(preedit)
	}

	var prev rune
	if cursor > 0 {
		prev = preedit[cursor-1]
	} else if s := c.SurroundingBeforeCursor(); s != "" {
		prev, _ = utf8.DecodeLastRuneInString(s)
	}

	insert, legal := ComposeThaiMark(prev, r)
	if legal {
		return false
	}

	ins := []rune(insert)
	text := make([]rune, 0, len(preedit)+len(ins))
	text = append(text, preedit[:cursor]...)
	text = append(text, ins...)
	text = append(text, preedit[cursor:]...)

	next := cursor + len(ins)
	if next == len(text) {
		next = -1
	}
	c.SetPreedit(string(text), next)
	return true
}

func atTail(text string, cursor int) bool {
	return cursor < 0 || cursor >= utf8.RuneCountInString(text)
}
