package hangul

// Compatibility jamo in syllable-index order.
var (
	leads  = []rune{'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ'}
	vowels = []rune{'ㅏ', 'ㅐ', 'ㅑ', 'ㅒ', 'ㅓ', 'ㅔ', 'ㅕ', 'ㅖ', 'ㅗ', 'ㅘ', 'ㅙ', 'ㅚ', 'ㅛ', 'ㅜ', 'ㅝ', 'ㅞ', 'ㅟ', 'ㅠ', 'ㅡ', 'ㅢ', 'ㅣ'}
	tails  = []rune{0, 'ㄱ', 'ㄲ', 'ㄳ', 'ㄴ', 'ㄵ', 'ㄶ', 'ㄷ', 'ㄹ', 'ㄺ', 'ㄻ', 'ㄼ', 'ㄽ', 'ㄾ', 'ㄿ', 'ㅀ', 'ㅁ', 'ㅂ', 'ㅄ', 'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ'}
)

var (
	leadCompose = map[[2]rune]rune{
		{'ㄱ', 'ㄱ'}: 'ㄲ',
		{'ㄷ', 'ㄷ'}: 'ㄸ',
		{'ㅂ', 'ㅂ'}: 'ㅃ',
		{'ㅈ', 'ㅈ'}: 'ㅉ',
		{'ㅅ', 'ㅅ'}: 'ㅆ',
	}
	vowelCompose = map[[2]rune]rune{
		{'ㅗ', 'ㅏ'}: 'ㅘ',
		{'ㅗ', 'ㅐ'}: 'ㅙ',
		{'ㅗ', 'ㅣ'}: 'ㅚ',
		{'ㅜ', 'ㅓ'}: 'ㅝ',
		{'ㅜ', 'ㅔ'}: 'ㅞ',
		{'ㅜ', 'ㅣ'}: 'ㅟ',
		{'ㅡ', 'ㅣ'}: 'ㅢ',
	}
	tailCompose = map[[2]rune]rune{
		{'ㄱ', 'ㄱ'}: 'ㄲ',
		{'ㄱ', 'ㅅ'}: 'ㄳ',
		{'ㄴ', 'ㅈ'}: 'ㄵ',
		{'ㄴ', 'ㅎ'}: 'ㄶ',
		{'ㄹ', 'ㄱ'}: 'ㄺ',
		{'ㄹ', 'ㅁ'}: 'ㄻ',
		{'ㄹ', 'ㅂ'}: 'ㄼ',
		{'ㄹ', 'ㅅ'}: 'ㄽ',
		{'ㄹ', 'ㅌ'}: 'ㄾ',
		{'ㄹ', 'ㅍ'}: 'ㄿ',
		{'ㄹ', 'ㅎ'}: 'ㅀ',
		{'ㅂ', 'ㅅ'}: 'ㅄ',
		{'ㅅ', 'ㅅ'}: 'ㅆ',
	}
)

var (
	leadIndex  = buildIndex(leads)
	vowelIndex = buildIndex(vowels)
	tailIndex  = buildIndex(tails)
)

func buildIndex(list []rune) map[rune]int {
	idx := make(map[rune]int, len(list))
	for i, r := range list {
		if r != 0 {
			idx[r] = i
		}
	}
	return idx
}

const (
	syllableBase = 0xAC00
	vowelCount   = 21
	tailCount    = 28
)

// IsConsonant reports whether r is a compatibility consonant jamo.
func IsConsonant(r rune) bool {
	_, lead := leadIndex[r]
	_, tail := tailIndex[r]
	return lead || tail
}

// IsVowel reports whether r is a compatibility vowel jamo.
func IsVowel(r rune) bool {
	_, ok := vowelIndex[r]
	return ok
}

// IsJamo reports whether r can be fed to a Compositor.
func IsJamo(r rune) bool {
	return IsConsonant(r) || IsVowel(r)
}

// combine folds up to two jamo with table, returning 0 when they do not
// combine.
func combine(parts []rune, table map[[2]rune]rune) rune {
	switch len(parts) {
	case 0:
		return 0
	case 1:
		return parts[0]
	case 2:
		return table[[2]rune{parts[0], parts[1]}]
	default:
		return 0
	}
}

// syllable composes a precomposed Hangul syllable. tail may be 0.
func syllable(lead, vowel, tail rune) rune {
	li := leadIndex[lead]
	vi := vowelIndex[vowel]
	ti := 0
	if tail != 0 {
		ti = tailIndex[tail]
	}
	return rune(syllableBase + (li*vowelCount+vi)*tailCount + ti)
}
