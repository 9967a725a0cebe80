// Package keyevent defines the immutable key activation value that flows
// through the composition pipeline.
package keyevent

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Phase tells whether a key went down or came up.
type Phase uint8

const (
	PhasePress Phase = iota
	PhaseRelease
)

func (p Phase) String() string {
	if p == PhaseRelease {
		return "release"
	}
	return "press"
}

// SpecialKey tags keys whose meaning is not carried by their text.
type SpecialKey uint8

const (
	KeyNone SpecialKey = iota
	KeyCopy
	KeyPaste
	KeyLayoutMenu
	KeyCycleSet
	KeySym
	KeySwitch
	KeyCommit
	KeyOnOffToggle
	KeyBackspace
	KeyReturn
	KeySpace
	KeyTab
	KeyShift
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyClose
)

var specialKeyNames = [...]string{
	KeyNone:        "none",
	KeyCopy:        "copy",
	KeyPaste:       "paste",
	KeyLayoutMenu:  "layout-menu",
	KeyCycleSet:    "cycle-set",
	KeySym:         "sym",
	KeySwitch:      "switch",
	KeyCommit:      "commit",
	KeyOnOffToggle: "on-off-toggle",
	KeyBackspace:   "backspace",
	KeyReturn:      "return",
	KeySpace:       "space",
	KeyTab:         "tab",
	KeyShift:       "shift",
	KeyLeft:        "left",
	KeyRight:       "right",
	KeyUp:          "up",
	KeyDown:        "down",
	KeyClose:       "close",
}

func (k SpecialKey) String() string {
	if int(k) < len(specialKeyNames) {
		return specialKeyNames[k]
	}
	return fmt.Sprintf("special(%d)", uint8(k))
}

// Modifiers represents modifier key state.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta // Command on macOS, Super elsewhere
)

// Has reports whether all bits of m are set.
func (mods Modifiers) Has(m Modifiers) bool {
	return mods&m == m
}

// KeyEvent describes one logical key activation. It is comparable, so two
// events are equal exactly when all their fields are equal.
//
// The zero value is a press of an empty, non-special key.
type KeyEvent struct {
	text        string
	phase       Phase
	special     SpecialKey
	hardwareKey uint32
	hasHardware bool
	modifiers   Modifiers
}

// New creates a press event for a virtual key.
func New(text string, special SpecialKey) KeyEvent {
	return KeyEvent{text: text, special: special}
}

// NewText creates a press event for an ordinary character key.
func NewText(text string) KeyEvent {
	return KeyEvent{text: text}
}

// NewHardware creates a press event coming from a physical keyboard.
func NewHardware(text string, special SpecialKey, code uint32, mods Modifiers) KeyEvent {
	return KeyEvent{
		text:        text,
		special:     special,
		hardwareKey: code,
		hasHardware: true,
		modifiers:   mods,
	}
}

// WithPhase returns a copy of the event with a different phase.
func (e KeyEvent) WithPhase(p Phase) KeyEvent {
	e.phase = p
	return e
}

// WithModifiers returns a copy of the event with a different modifier set.
func (e KeyEvent) WithModifiers(m Modifiers) KeyEvent {
	e.modifiers = m
	return e
}

func (e KeyEvent) Text() string { return e.text }

func (e KeyEvent) Phase() Phase { return e.phase }

func (e KeyEvent) SpecialKey() SpecialKey { return e.special }

func (e KeyEvent) Modifiers() Modifiers { return e.modifiers }

func (e KeyEvent) IsRelease() bool { return e.phase == PhaseRelease }

func (e KeyEvent) Equal(other KeyEvent) bool { return e == other }

// HardwareKey returns the platform key code, if the event came from hardware.
func (e KeyEvent) HardwareKey() (uint32, bool) {
	return e.hardwareKey, e.hasHardware
}

// SameKey reports whether two events were produced by the same physical or
// virtual key, ignoring the phase.
func (e KeyEvent) SameKey(other KeyEvent) bool {
	return e.WithPhase(PhasePress) == other.WithPhase(PhasePress)
}

// IsWhitespaceCommit reports whether the key ends a word: Space, Return or Tab,
// either tagged or carried as text.
func (e KeyEvent) IsWhitespaceCommit() bool {
	switch e.special {
	case KeySpace, KeyReturn, KeyTab:
		return true
	case KeyNone:
		return e.text == " " || e.text == "\n" || e.text == "\r" || e.text == "\t"
	}
	return false
}

// IsReturn reports whether the key is Return, tagged or carried as text.
func (e KeyEvent) IsReturn() bool {
	return e.special == KeyReturn || (e.special == KeyNone && (e.text == "\n" || e.text == "\r"))
}

// IsSpace reports whether the key is the space bar.
func (e KeyEvent) IsSpace() bool {
	return e.special == KeySpace || (e.special == KeyNone && e.text == " ")
}

// IsPrintable reports whether the key inserts visible text.
func (e KeyEvent) IsPrintable() bool {
	if e.special != KeyNone || e.text == "" {
		return false
	}
	for _, r := range e.text {
		if !unicode.IsPrint(r) && !unicode.Is(unicode.Mn, r) {
			return false
		}
	}
	return true
}

// Rune returns the single rune carried by the event, or false if the text is
// empty or longer than one rune.
func (e KeyEvent) Rune() (rune, bool) {
	if utf8.RuneCountInString(e.text) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(e.text)
	return r, true
}

// CommitText is the text inserted when the key is committed directly.
func (e KeyEvent) CommitText() string {
	switch e.special {
	case KeySpace:
		return " "
	case KeyReturn:
		return "\n"
	case KeyTab:
		return "\t"
	case KeyNone:
		return e.text
	}
	return ""
}

func (e KeyEvent) String() string {
	var b strings.Builder
	b.WriteString(e.phase.String())
	if e.special != KeyNone {
		b.WriteString(" ")
		b.WriteString(e.special.String())
	}
	if e.text != "" {
		fmt.Fprintf(&b, " %q", e.text)
	}
	if e.hasHardware {
		fmt.Fprintf(&b, " hw=0x%x", e.hardwareKey)
	}
	if e.modifiers != 0 {
		fmt.Fprintf(&b, " mods=%04b", uint8(e.modifiers))
	}
	return b.String()
}
