package handler

// Thai character classes used by the mark legality rules.

func isThaiConsonant(r rune) bool {
	return r >= 0x0E01 && r <= 0x0E2E
}

// isThaiAboveBelowVowel covers sara am's short form, the vowels written
// above or below the consonant, phinthu and maitaikhu.
func isThaiAboveBelowVowel(r rune) bool {
	return r == 0x0E31 || (r >= 0x0E34 && r <= 0x0E3A) || r == 0x0E47
}

func isThaiTone(r rune) bool {
	return r >= 0x0E48 && r <= 0x0E4B
}

// IsThaiMark reports whether r is a Thai combining mark whose placement is
// checked.
func IsThaiMark(r rune) bool {
	return isThaiAboveBelowVowel(r) || isThaiTone(r) || (r >= 0x0E4C && r <= 0x0E4E)
}

// ThaiMarkLegal reports whether mark may follow prev. Characters that are not
// Thai combining marks are always legal.
func ThaiMarkLegal(prev, mark rune) bool {
	switch {
	case isThaiAboveBelowVowel(mark):
		return isThaiConsonant(prev)
	case isThaiTone(mark):
		return isThaiConsonant(prev) || (isThaiAboveBelowVowel(prev) && prev != 0x0E47)
	case mark == 0x0E4C: // thanthakhat
		return isThaiConsonant(prev) || prev == 0x0E34 || prev == 0x0E38
	case mark == 0x0E4D: // nikhahit
		return isThaiConsonant(prev) || isThaiTone(prev)
	case mark == 0x0E4E: // yamakkan
		return isThaiConsonant(prev)
	}
	return true
}

// ComposeThaiMark returns the text to insert for mark after prev. An illegal
// mark is still inserted but preceded by a space so it does not stack on the
// previous glyph; ok reports whether the combination was canonical.
func ComposeThaiMark(prev, mark rune) (string, bool) {
	if ThaiMarkLegal(prev, mark) {
		return string(mark), true
	}
	return " " + string(mark), false
}
