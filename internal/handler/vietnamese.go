package handler

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Vietnamese tone marks as combining characters.
const (
	ToneGrave     = '\u0300' // huyền
	ToneAcute     = '\u0301' // sắc
	ToneTilde     = '\u0303' // ngã
	ToneHookAbove = '\u0309' // hỏi
	ToneDotBelow  = '\u0323' // nặng
)

// IsVietnameseTone reports whether r is one of the five tone marks.
func IsVietnameseTone(r rune) bool {
	switch r {
	case ToneGrave, ToneAcute, ToneTilde, ToneHookAbove, ToneDotBelow:
		return true
	}
	return false
}

// isQualityMark reports whether r changes the vowel itself: circumflex,
// breve or horn.
func isQualityMark(r rune) bool {
	return r == '\u0302' || r == '\u0306' || r == '\u031b'
}

// letter is one composed character split into its base and marks.
type letter struct {
	base    rune
	quality []rune
	tone    rune
	other   []rune
}

func splitLetter(r rune) letter {
	d := []rune(norm.NFD.String(string(r)))
	l := letter{base: d[0]}
	for _, m := range d[1:] {
		switch {
		case IsVietnameseTone(m):
			l.tone = m
		case isQualityMark(m):
			l.quality = append(l.quality, m)
		default:
			l.other = append(l.other, m)
		}
	}
	return l
}

func (l letter) compose() rune {
	var b strings.Builder
	b.WriteRune(l.base)
	for _, m := range l.quality {
		b.WriteRune(m)
	}
	for _, m := range l.other {
		b.WriteRune(m)
	}
	if l.tone != 0 {
		b.WriteRune(l.tone)
	}
	out := []rune(norm.NFC.String(b.String()))
	return out[0]
}

func (l letter) isVowel() bool {
	switch unicode.ToLower(l.base) {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)
}

// syllableBounds returns the run of letters around cursor.
func syllableBounds(runes []rune, cursor int) (start, end int) {
	start = cursor
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	end = cursor
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return start, end
}

// nucleus returns the positions in letters that act as vowels. The u of
// "qu" and the i of "gi" before another vowel belong to the consonant.
func nucleus(letters []letter) []int {
	var idx []int
	for i, l := range letters {
		if !l.isVowel() {
			continue
		}
		lower := unicode.ToLower(l.base)
		if i > 0 {
			prev := unicode.ToLower(letters[i-1].base)
			if lower == 'u' && prev == 'q' && len(l.quality) == 0 {
				continue
			}
			if lower == 'i' && prev == 'g' && i+1 < len(letters) && letters[i+1].isVowel() {
				continue
			}
		}
		idx = append(idx, i)
	}
	return idx
}

// toneTarget picks the vowel that carries the tone.
func toneTarget(letters []letter, vowels []int) int {
	for i := len(vowels) - 1; i >= 0; i-- {
		if len(letters[vowels[i]].quality) > 0 {
			return vowels[i]
		}
	}
	switch {
	case len(vowels) == 1:
		return vowels[0]
	case len(vowels) >= 3:
		return vowels[1]
	}
	// Two vowels: a final consonant moves the tone to the second one
	// (toán, hoàn); an open syllable keeps it on the first (hòa, mùa).
	if vowels[1] < len(letters)-1 {
		return vowels[1]
	}
	return vowels[0]
}

// placeInRange applies tone to the syllable runes[start:end]. The nucleus
// is chosen among runes[start:upto]; every other letter of the syllable
// loses its tone. It returns false when that part has no vowel.
func placeInRange(runes []rune, start, upto, end int, tone rune) ([]rune, bool) {
	letters := make([]letter, 0, end-start)
	for _, r := range runes[start:end] {
		letters = append(letters, splitLetter(r))
	}
	head := letters[:upto-start]
	vowels := nucleus(head)
	if len(vowels) == 0 {
		return nil, false
	}
	target := toneTarget(head, vowels)

	out := append([]rune(nil), runes...)
	for i := range letters {
		l := letters[i]
		l.tone = 0
		if i == target {
			l.tone = tone
		}
		out[start+i] = l.compose()
	}
	return out, true
}

// PlaceVietnameseTone puts tone on the nucleus of the syllable that ends at
// cursor, replacing any tone already present in it. cursor is a rune offset
// into text; -1 means the end. It first looks only at the part of the
// syllable before the cursor and then at the whole syllable. The returned
// cursor is unchanged in runes. ok is false when tone is not a tone mark or
// no vowel was found.
func PlaceVietnameseTone(text string, cursor int, tone rune) (string, int, bool) {
	if !IsVietnameseTone(tone) {
		return text, cursor, false
	}
	runes := []rune(norm.NFC.String(text))
	pos := cursor
	if pos < 0 || pos > len(runes) {
		pos = len(runes)
	}

	start, end := syllableBounds(runes, pos)
	out, ok := placeInRange(runes, start, pos, end, tone)
	if !ok {
		out, ok = placeInRange(runes, start, end, end, tone)
	}
	if !ok {
		return text, cursor, false
	}
	return string(out), cursor, true
}

// syllableTone returns the tone carried by the syllable, or 0.
func syllableTone(runes []rune) rune {
	for _, r := range runes {
		if t := splitLetter(r).tone; t != 0 {
			return t
		}
	}
	return 0
}

// RepositionVietnameseTone moves an already placed tone in the last
// syllable of text to where it belongs now that the syllable has grown,
// for example "hòan" to "hoàn" or "gía" to "giá". Text without a tone in
// its last syllable is returned unchanged.
func RepositionVietnameseTone(text string) string {
	runes := []rune(norm.NFC.String(text))
	start, end := syllableBounds(runes, len(runes))
	tone := syllableTone(runes[start:end])
	if tone == 0 {
		return text
	}
	out, ok := placeInRange(runes, start, end, end, tone)
	if !ok {
		return text
	}
	return string(out)
}
