package ibus

import (
	"maliitkeyboard/internal/keyevent"
)

// IBus key event state masks.
const (
	ShiftMask   uint32 = 1 << 0
	LockMask    uint32 = 1 << 1
	ControlMask uint32 = 1 << 2
	Mod1Mask    uint32 = 1 << 3 // Alt
	Mod4Mask    uint32 = 1 << 6 // Super/Meta
	ReleaseMask uint32 = 1 << 30
)

// X11 keysyms the engine translates.
const (
	KeyBackSpace = 0xff08
	KeyTab       = 0xff09
	KeyReturn    = 0xff0d
	KeyEscape    = 0xff1b
	KeyLeft      = 0xff51
	KeyUp        = 0xff52
	KeyRight     = 0xff53
	KeyDown      = 0xff54
	KeyKPEnter   = 0xff8d
	KeyShiftL    = 0xffe1
	KeyShiftR    = 0xffe2
	KeySpace     = 0x0020

	unicodeKeysym = 0x01000000
)

var specialKeysyms = map[uint32]keyevent.SpecialKey{
	KeyBackSpace: keyevent.KeyBackspace,
	KeyTab:       keyevent.KeyTab,
	KeyReturn:    keyevent.KeyReturn,
	KeyKPEnter:   keyevent.KeyReturn,
	KeyLeft:      keyevent.KeyLeft,
	KeyUp:        keyevent.KeyUp,
	KeyRight:     keyevent.KeyRight,
	KeyDown:      keyevent.KeyDown,
	KeyShiftL:    keyevent.KeyShift,
	KeyShiftR:    keyevent.KeyShift,
	KeySpace:     keyevent.KeySpace,
}

var keysymForSpecial = map[keyevent.SpecialKey]uint32{
	keyevent.KeyBackspace: KeyBackSpace,
	keyevent.KeyTab:       KeyTab,
	keyevent.KeyReturn:    KeyReturn,
	keyevent.KeyLeft:      KeyLeft,
	keyevent.KeyUp:        KeyUp,
	keyevent.KeyRight:     KeyRight,
	keyevent.KeyDown:      KeyDown,
	keyevent.KeyShift:     KeyShiftL,
	keyevent.KeySpace:     KeySpace,
}

// KeyEventFor translates an IBus key event. ok is false for keys the
// composition core does not handle, which are passed through.
func KeyEventFor(keyval, keycode, state uint32) (keyevent.KeyEvent, bool) {
	mods := modifiersFrom(state)
	if special, ok := specialKeysyms[keyval]; ok {
		text := ""
		switch special {
		case keyevent.KeySpace:
			text = " "
		case keyevent.KeyReturn:
			text = "\n"
		case keyevent.KeyTab:
			text = "\t"
		}
		return keyevent.NewHardware(text, special, keycode, mods), true
	}

	r := keyvalToRune(keyval)
	if r == 0 {
		return keyevent.KeyEvent{}, false
	}
	return keyevent.NewHardware(string(r), keyevent.KeyNone, keycode, mods), true
}

// keyvalToRune maps a keysym to the character it produces, or 0.
func keyvalToRune(keyval uint32) rune {
	// Latin-1 keysyms equal their code points.
	if keyval >= 0x20 && keyval <= 0x7e {
		return rune(keyval)
	}
	if keyval >= 0xa0 && keyval <= 0xff {
		return rune(keyval)
	}
	if keyval >= unicodeKeysym && keyval <= unicodeKeysym+0x10ffff {
		return rune(keyval - unicodeKeysym)
	}
	return 0
}

// keysymFor is the inverse of KeyEventFor, used to forward keys.
func keysymFor(ev keyevent.KeyEvent) uint32 {
	if sym, ok := keysymForSpecial[ev.SpecialKey()]; ok {
		return sym
	}
	r, ok := ev.Rune()
	if !ok {
		return 0
	}
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return uint32(r)
	}
	return unicodeKeysym + uint32(r)
}

func modifiersFrom(state uint32) keyevent.Modifiers {
	var mods keyevent.Modifiers
	if state&ShiftMask != 0 {
		mods |= keyevent.ModShift
	}
	if state&ControlMask != 0 {
		mods |= keyevent.ModControl
	}
	if state&Mod1Mask != 0 {
		mods |= keyevent.ModAlt
	}
	if state&Mod4Mask != 0 {
		mods |= keyevent.ModMeta
	}
	return mods
}

func stateFrom(mods keyevent.Modifiers) uint32 {
	var state uint32
	if mods.Has(keyevent.ModShift) {
		state |= ShiftMask
	}
	if mods.Has(keyevent.ModControl) {
		state |= ControlMask
	}
	if mods.Has(keyevent.ModAlt) {
		state |= Mod1Mask
	}
	if mods.Has(keyevent.ModMeta) {
		state |= Mod4Mask
	}
	return state
}
