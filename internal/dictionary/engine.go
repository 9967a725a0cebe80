package dictionary

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	gocache "github.com/patrickmn/go-cache"

	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/logging"
)

// Kind selects the candidate policy of an Engine.
type Kind int

const (
	// KindDefault corrects and completes alphabetic words.
	KindDefault Kind = iota
	// KindCJK converts romanized readings into words.
	KindCJK
)

func (k Kind) String() string {
	if k == KindCJK {
		return "cjk"
	}
	return "default"
}

// UserDictionary is the part of the user store the engine needs.
type UserDictionary interface {
	Learn(language, word string) error
	LearnBigram(language, previous, word string) error
	Frequency(language, word string) (int, error)
	NextWords(language, previous string, limit int) ([]string, error)
}

type candidateList struct {
	words   []string
	sources []correction.DictionaryType
}

// Engine is a word-list backed correction.ScriptEngine.
type Engine struct {
	mu sync.Mutex

	kind    Kind
	lexicon func(language string, script correction.Script) (*Lexicon, error)
	user    UserDictionary
	logger  *logging.Logger
	cache   *gocache.Cache

	language string
	lex      *Lexicon

	correction bool
	completion bool
	prediction bool
	fuzzy      bool
	script     correction.Script

	maxCandidates int
	exactPosition correction.ExactWordPosition

	buffer    []rune
	last      candidateList
	suggested int
	previous  string
	keys      map[rune]correction.LayoutKey
	released  bool
}

var _ correction.ScriptEngine = (*Engine)(nil)

func (e *Engine) flush() {
	e.cache.Flush()
	e.last = candidateList{}
}

func (e *Engine) SetLanguage(tag string, _ correction.LanguagePriority) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lex, err := e.lexicon(tag, e.script)
	if err != nil {
		return fmt.Errorf("set language %s: %w", tag, err)
	}
	e.language = tag
	e.lex = lex
	e.buffer = nil
	e.previous = ""
	e.flush()
	return nil
}

func (e *Engine) EnableCorrection()  { e.setFlag(&e.correction, true) }
func (e *Engine) DisableCorrection() { e.setFlag(&e.correction, false) }
func (e *Engine) EnableCompletion()  { e.setFlag(&e.completion, true) }
func (e *Engine) DisableCompletion() { e.setFlag(&e.completion, false) }
func (e *Engine) EnablePrediction()  { e.setFlag(&e.prediction, true) }
func (e *Engine) DisablePrediction() { e.setFlag(&e.prediction, false) }

func (e *Engine) EnableFuzzyMatching()  { e.setFlag(&e.fuzzy, true) }
func (e *Engine) DisableFuzzyMatching() { e.setFlag(&e.fuzzy, false) }

func (e *Engine) setFlag(flag *bool, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if *flag != v {
		*flag = v
		e.flush()
	}
}

// SetScript switches between simplified and traditional word lists when the
// language has both.
func (e *Engine) SetScript(s correction.Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.script == s {
		return
	}
	e.script = s
	if e.language != "" {
		if lex, err := e.lexicon(e.language, s); err == nil {
			e.lex = lex
		}
	}
	e.flush()
}

func (e *Engine) SetMaximumCandidates(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxCandidates = n
	e.flush()
}

func (e *Engine) SetExactWordPositionInList(pos correction.ExactWordPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exactPosition = pos
	e.flush()
}

func (e *Engine) Candidates(start, length int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil
	}
	text := e.span(start, length)
	key := e.cacheKey(text)
	if v, ok := e.cache.Get(key); ok {
		if list, ok := v.(candidateList); ok {
			e.last = list
			return append([]string(nil), list.words...)
		}
	}

	list := e.compute(text)
	e.cache.SetDefault(key, list)
	e.last = list
	return append([]string(nil), list.words...)
}

func (e *Engine) span(start, length int) string {
	if start < 0 || start > len(e.buffer) {
		start = 0
	}
	end := len(e.buffer)
	if length > 0 && start+length < end {
		end = start + length
	}
	return string(e.buffer[start:end])
}

func (e *Engine) cacheKey(text string) string {
	return fmt.Sprintf("%s|%d|%t%t%t%t|%d|%d|%s|%s",
		e.language, e.script, e.correction, e.completion, e.prediction, e.fuzzy,
		e.maxCandidates, e.exactPosition, strings.ToLower(e.previous), text)
}

func (e *Engine) CandidateSource(i int) correction.DictionaryType {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.last.sources) {
		return correction.DictionaryNone
	}
	return e.last.sources[i]
}

func (e *Engine) TapKeyboard(_ correction.Point, shifted bool, r rune) {
	if shifted {
		r = unicode.ToUpper(r)
	}
	e.AppendCharacter(r)
}

func (e *Engine) AppendCharacter(r rune) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, r)
	e.suggested = -1
}

func (e *Engine) ReselectString(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = []rune(text)
	e.suggested = -1
}

func (e *Engine) ClearEngineBuffer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = nil
	e.suggested = -1
	e.last = candidateList{}
}

// SaveAndClearEngineBuffer learns the committed word, and the pair it forms
// with the previous word, before clearing the buffer.
func (e *Engine) SaveAndClearEngineBuffer() {
	e.mu.Lock()
	defer e.mu.Unlock()

	word := string(e.buffer)
	if e.suggested >= 0 && e.suggested < len(e.last.words) {
		word = e.last.words[e.suggested]
	}
	word = strings.TrimSpace(word)

	if word != "" && e.user != nil && e.language != "" {
		if err := e.user.Learn(e.language, word); err != nil {
			e.logger.Warn("learn word failed", "language", e.language, "error", err)
		}
		if e.previous != "" {
			if err := e.user.LearnBigram(e.language, e.previous, word); err != nil {
				e.logger.Warn("learn word pair failed", "language", e.language, "error", err)
			}
		}
		e.cache.Flush()
	}
	if word != "" {
		e.previous = word
	}

	e.buffer = nil
	e.suggested = -1
	e.last = candidateList{}
}

func (e *Engine) SetSuggestedCandidateIndex(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suggested = i
}

func (e *Engine) SetKeyboardLayoutKeys(keys []correction.LayoutKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = make(map[rune]correction.LayoutKey, len(keys))
	for _, k := range keys {
		e.keys[unicode.ToLower(k.Rune)] = k
	}
	e.flush()
}

// SetContext takes the text before the word being composed; its last word
// drives next-word prediction.
func (e *Engine) SetContext(text string, cursor int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runes := []rune(text)
	if cursor >= 0 && cursor < len(runes) {
		runes = runes[:cursor]
	}
	e.previous = lastWord(string(runes))
}

func lastWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[len(fields)-1], func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func (e *Engine) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = true
	e.lex = nil
	e.buffer = nil
	e.cache.Flush()
}

// compute builds the candidate list for text. Callers hold e.mu.
func (e *Engine) compute(text string) candidateList {
	var b listBuilder

	if text == "" {
		if e.prediction && e.previous != "" && e.user != nil {
			next, err := e.user.NextWords(e.language, e.previous, e.maxCandidates)
			if err != nil {
				e.logger.Warn("prediction lookup failed", "language", e.language, "error", err)
			}
			for _, w := range next {
				b.add(w, correction.DictionaryContext)
			}
		}
		return b.finish(e.limit())
	}

	if e.lex == nil {
		b.add(text, correction.DictionaryNone)
		return b.finish(e.limit())
	}

	switch e.kind {
	case KindCJK:
		e.computeCJK(&b, text)
	default:
		e.computeAlphabetic(&b, text)
	}
	return b.finish(e.limit())
}

func (e *Engine) limit() int {
	if e.maxCandidates <= 0 {
		return math.MaxInt
	}
	return e.maxCandidates
}

func (e *Engine) literalSource(text string) correction.DictionaryType {
	if e.lex != nil && e.lex.Contains(text) {
		return correction.DictionaryMain
	}
	if e.user != nil {
		if freq, err := e.user.Frequency(e.language, text); err == nil && freq > 0 {
			return correction.DictionaryUser
		}
	}
	return correction.DictionaryNone
}

func (e *Engine) computeAlphabetic(b *listBuilder, text string) {
	literal := text
	literalSrc := e.literalSource(text)

	var suggestions listBuilder
	if e.correction && literalSrc == correction.DictionaryNone {
		for _, w := range e.corrections(text) {
			suggestions.add(matchCase(text, w), correction.DictionaryMain)
		}
	}
	if e.completion {
		for _, entry := range e.lex.Complete(text) {
			if !strings.EqualFold(entry.Word, text) {
				suggestions.add(matchCase(text, entry.Word), correction.DictionaryMain)
			}
		}
	}

	switch e.exactPosition {
	case correction.ExactWordPositionHidden:
		b.merge(&suggestions)
		if b.len() == 0 {
			b.add(literal, literalSrc)
		}
	case correction.ExactWordPositionSecond:
		if suggestions.len() == 0 {
			b.add(literal, literalSrc)
			return
		}
		b.add(suggestions.words[0], suggestions.sources[0])
		b.add(literal, literalSrc)
		b.merge(&suggestions)
	default:
		b.add(literal, literalSrc)
		b.merge(&suggestions)
	}
}

type scored struct {
	word  string
	dist  int
	near  int
	freq  int
	index int
}

// corrections returns dictionary words within a small edit distance of
// text, closest first. Substitutions between neighbouring keys rank higher.
func (e *Engine) corrections(text string) []string {
	typed := strings.ToLower(text)
	n := utf8.RuneCountInString(typed)
	if n < 2 {
		return nil
	}
	maxDist := 2
	if n <= 4 {
		maxDist = 1
	}

	var found []scored
	for i, reading := range e.lex.Readings() {
		if abs(utf8.RuneCountInString(reading)-n) > maxDist {
			continue
		}
		d := fuzzy.LevenshteinDistance(typed, reading)
		if d == 0 || d > maxDist {
			continue
		}
		for _, entry := range e.lex.Lookup(reading) {
			found = append(found, scored{
				word:  entry.Word,
				dist:  d,
				near:  e.neighbourHits(typed, reading),
				freq:  entry.Freq,
				index: i,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.near != b.near {
			return a.near > b.near
		}
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		return a.index < b.index
	})

	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.word
	}
	return out
}

// neighbourHits counts same-position substitutions between adjacent keys.
func (e *Engine) neighbourHits(typed, word string) int {
	if len(e.keys) == 0 {
		return 0
	}
	a, b := []rune(typed), []rune(word)
	if len(a) != len(b) {
		return 0
	}
	hits := 0
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		ka, okA := e.keys[a[i]]
		kb, okB := e.keys[b[i]]
		if !okA || !okB {
			continue
		}
		dx := ka.Center.X - kb.Center.X
		dy := ka.Center.Y - kb.Center.Y
		reach := 3 * max(ka.Width, ka.Height) / 2
		if dx*dx+dy*dy <= reach*reach {
			hits++
		}
	}
	return hits
}

func (e *Engine) computeCJK(b *listBuilder, text string) {
	reading := strings.ToLower(text)

	var matches []Entry
	if e.fuzzy {
		key := fuzzyPinyin(reading)
		for _, r := range e.lex.Readings() {
			if fuzzyPinyin(r) == key {
				matches = append(matches, e.lex.Lookup(r)...)
			}
		}
	} else {
		matches = e.lex.Lookup(reading)
	}
	for _, entry := range matches {
		b.add(entry.Word, correction.DictionaryMain)
	}

	if e.completion || e.prediction {
		for _, entry := range e.lex.Complete(reading) {
			b.add(entry.Word, correction.DictionaryMain)
		}
	}

	if e.exactPosition == correction.ExactWordPositionFirst {
		var lit listBuilder
		lit.add(text, correction.DictionaryNone)
		lit.merge(b)
		*b = lit
		return
	}
	if e.exactPosition != correction.ExactWordPositionHidden || b.len() == 0 {
		b.add(text, correction.DictionaryNone)
	}
}

// fuzzyPinyin folds initials and finals that are commonly confused.
var fuzzyPinyinReplacer = strings.NewReplacer(
	"zh", "z", "ch", "c", "sh", "s",
	"ang", "an", "eng", "en", "ing", "in",
	"l", "n",
)

func fuzzyPinyin(s string) string {
	return fuzzyPinyinReplacer.Replace(s)
}

// matchCase capitalizes suggestion when typed starts with a capital.
func matchCase(typed, suggestion string) string {
	first, _ := utf8.DecodeRuneInString(typed)
	if !unicode.IsUpper(first) {
		return suggestion
	}
	r, size := utf8.DecodeRuneInString(suggestion)
	return string(unicode.ToUpper(r)) + suggestion[size:]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type listBuilder struct {
	words   []string
	sources []correction.DictionaryType
	seen    map[string]bool
}

func (b *listBuilder) add(word string, src correction.DictionaryType) {
	if word == "" {
		return
	}
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	if b.seen[word] {
		return
	}
	b.seen[word] = true
	b.words = append(b.words, word)
	b.sources = append(b.sources, src)
}

func (b *listBuilder) merge(other *listBuilder) {
	for i, w := range other.words {
		b.add(w, other.sources[i])
	}
}

func (b *listBuilder) len() int {
	return len(b.words)
}

func (b *listBuilder) finish(limit int) candidateList {
	if len(b.words) > limit {
		b.words = b.words[:limit]
		b.sources = b.sources[:limit]
	}
	return candidateList{words: b.words, sources: b.sources}
}

func newCache(ttl time.Duration) *gocache.Cache {
	if ttl <= 0 {
		return gocache.New(gocache.NoExpiration, 0)
	}
	return gocache.New(ttl, 2*ttl)
}
