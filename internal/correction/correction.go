// Package correction defines the word correction and prediction capability
// the composition core drives. Engines are external; this package only
// fixes the contract.
package correction

// LanguagePriority tells an engine how strongly to weight a language.
type LanguagePriority int

const (
	PriorityPrimary LanguagePriority = iota
	PrioritySecondary
)

// ExactWordPosition controls where the literally typed word appears in the
// candidate list.
type ExactWordPosition int

const (
	ExactWordPositionDefault ExactWordPosition = iota
	ExactWordPositionFirst
	ExactWordPositionSecond
	ExactWordPositionHidden
)

// DictionaryType reports where a candidate came from.
type DictionaryType int

const (
	// DictionaryNone means the candidate matched no dictionary, e.g. the
	// literal input of an unknown word.
	DictionaryNone DictionaryType = iota
	DictionaryMain
	DictionaryUser
	DictionaryContext
)

func (d DictionaryType) String() string {
	switch d {
	case DictionaryMain:
		return "main"
	case DictionaryUser:
		return "user"
	case DictionaryContext:
		return "context"
	default:
		return "none"
	}
}

// Script selects the Han script a CJK engine prefers.
type Script int

const (
	ScriptSimplified Script = iota
	ScriptTraditional
)

// Point is a touch position in layout coordinates.
type Point struct {
	X, Y int
}

// LayoutKey describes one key of the visible layout so an engine can weigh
// neighbouring keys when correcting.
type LayoutKey struct {
	Rune   rune
	Center Point
	Width  int
	Height int
}

// Engine is a stateful correction and prediction engine bound to one
// language at a time. It holds its own copy of the word being typed.
type Engine interface {
	SetLanguage(tag string, priority LanguagePriority) error

	EnableCorrection()
	DisableCorrection()
	EnableCompletion()
	DisableCompletion()
	EnablePrediction()
	DisablePrediction()

	SetMaximumCandidates(n int)
	SetExactWordPositionInList(pos ExactWordPosition)

	// Candidates returns suggestions for the buffer range [start, start+length).
	// A length <= 0 means the whole buffer.
	Candidates(start, length int) []string
	// CandidateSource reports the dictionary the i-th candidate of the most
	// recent Candidates call came from.
	CandidateSource(i int) DictionaryType

	// TapKeyboard appends a character typed at a known position.
	TapKeyboard(p Point, shifted bool, r rune)
	AppendCharacter(r rune)
	// ReselectString replaces the buffer with text, e.g. after a cursor move
	// or a reselected word.
	ReselectString(text string)
	ClearEngineBuffer()
	// SaveAndClearEngineBuffer lets the engine learn the committed word before
	// clearing its buffer.
	SaveAndClearEngineBuffer()
	SetSuggestedCandidateIndex(i int)

	SetKeyboardLayoutKeys(keys []LayoutKey)
	SetContext(text string, cursor int)
}

// ScriptEngine is implemented by engines that handle Han scripts and fuzzy
// pinyin matching.
type ScriptEngine interface {
	Engine
	SetScript(s Script)
	EnableFuzzyMatching()
	DisableFuzzyMatching()
}

// Factory creates and releases engines by name. Release must be called
// exactly once for every engine Create returned.
type Factory interface {
	Create(name string) (Engine, error)
	Release(e Engine)
}
