// Package hangul composes compatibility jamo into Hangul syllables, one
// syllable in progress at a time.
package hangul

// Backspace removes the most recent jamo when passed to AppendCharacter.
const Backspace = '\b'

// Compositor is a two-set (dubeolsik) jamo automaton. It keeps at most one
// syllable in progress and one completed syllable waiting to be read.
//
// Candidates(0, 0) reports both as a single string: one rune means the
// syllable in progress, two runes mean a completed syllable followed by the
// one in progress.
type Compositor struct {
	lead  []rune
	vowel []rune
	tail  []rune

	commit []rune
}

// New returns an empty compositor.
func New() *Compositor {
	return &Compositor{
		lead:  make([]rune, 0, 2),
		vowel: make([]rune, 0, 2),
		tail:  make([]rune, 0, 2),
	}
}

// AppendCharacter feeds one jamo, or Backspace. Anything else completes the
// current syllable.
func (c *Compositor) AppendCharacter(r rune) {
	c.commit = c.commit[:0]
	switch {
	case r == Backspace:
		c.backspace()
	case IsVowel(r):
		c.feedVowel(r)
	case IsConsonant(r):
		c.feedConsonant(r)
	default:
		c.complete()
	}
}

// Candidates returns the completed syllable, if any, followed by the
// syllable in progress. The completed syllable is reported only once. The
// arguments are accepted for engine compatibility and ignored.
func (c *Compositor) Candidates(_, _ int) []string {
	out := append(append([]rune(nil), c.commit...), c.current()...)
	c.commit = c.commit[:0]
	if len(out) == 0 {
		return nil
	}
	return []string{string(out)}
}

// Preedit returns the syllable in progress.
func (c *Compositor) Preedit() string {
	return string(c.current())
}

// Flush returns the syllable in progress and clears all state.
func (c *Compositor) Flush() string {
	s := string(c.current())
	c.ClearEngineBuffer()
	return s
}

// ClearEngineBuffer drops all state.
func (c *Compositor) ClearEngineBuffer() {
	c.reset()
	c.commit = c.commit[:0]
}

func (c *Compositor) reset() {
	c.lead = c.lead[:0]
	c.vowel = c.vowel[:0]
	c.tail = c.tail[:0]
}

func (c *Compositor) complete() {
	c.commit = append(c.commit, c.current()...)
	c.reset()
}

func (c *Compositor) feedConsonant(r rune) {
	switch {
	case len(c.lead) == 0:
		if len(c.vowel) > 0 {
			c.complete()
		}
		c.lead = append(c.lead, r)

	case len(c.vowel) == 0:
		if len(c.lead) == 1 && combine([]rune{c.lead[0], r}, leadCompose) != 0 {
			c.lead = append(c.lead, r)
			return
		}
		c.complete()
		c.lead = append(c.lead, r)

	case len(c.tail) == 0:
		if _, ok := tailIndex[r]; ok {
			c.tail = append(c.tail, r)
			return
		}
		c.complete()
		c.lead = append(c.lead, r)

	default:
		if len(c.tail) == 1 && combine([]rune{c.tail[0], r}, tailCompose) != 0 {
			c.tail = append(c.tail, r)
			return
		}
		c.complete()
		c.lead = append(c.lead, r)
	}
}

func (c *Compositor) feedVowel(r rune) {
	if len(c.tail) > 0 {
		// The last final consonant moves to the next syllable: 간+ㅏ = 가나.
		moved := c.tail[len(c.tail)-1]
		if _, ok := leadIndex[moved]; !ok {
			c.complete()
			c.vowel = append(c.vowel, r)
			return
		}
		c.tail = c.tail[:len(c.tail)-1]
		c.complete()
		c.lead = append(c.lead, moved)
		c.vowel = append(c.vowel, r)
		return
	}

	if len(c.vowel) == 0 {
		if len(c.lead) > 0 && !c.leadComposable() {
			c.complete()
		}
		c.vowel = append(c.vowel, r)
		return
	}

	if len(c.vowel) == 1 && combine([]rune{c.vowel[0], r}, vowelCompose) != 0 {
		c.vowel = append(c.vowel, r)
		return
	}

	c.complete()
	c.vowel = append(c.vowel, r)
}

func (c *Compositor) leadComposable() bool {
	_, ok := leadIndex[combine(c.lead, leadCompose)]
	return ok
}

func (c *Compositor) backspace() {
	switch {
	case len(c.tail) > 0:
		c.tail = c.tail[:len(c.tail)-1]
	case len(c.vowel) > 0:
		c.vowel = c.vowel[:len(c.vowel)-1]
	case len(c.lead) > 0:
		c.lead = c.lead[:len(c.lead)-1]
	}
}

// current renders the syllable in progress; it is at most one rune.
func (c *Compositor) current() []rune {
	lead := combine(c.lead, leadCompose)
	vowel := combine(c.vowel, vowelCompose)
	tail := combine(c.tail, tailCompose)

	switch {
	case lead != 0 && vowel != 0:
		return []rune{syllable(lead, vowel, tail)}
	case lead != 0:
		return []rune{lead}
	case vowel != 0:
		return []rune{vowel}
	default:
		return nil
	}
}
