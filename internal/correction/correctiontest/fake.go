// Package correctiontest provides in-memory correction engines for tests.
package correctiontest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"maliitkeyboard/internal/correction"
)

// Engine is a scriptable correction.ScriptEngine that records what it was
// told. Its candidates are produced by Suggest, which defaults to echoing the
// buffer.
type Engine struct {
	mu sync.Mutex

	Name        string
	Language    string
	Priority    correction.LanguagePriority
	LanguageErr error

	Correction bool
	Completion bool
	Prediction bool
	Fuzzy      bool
	Script     correction.Script

	MaxCandidates int
	ExactPosition correction.ExactWordPosition

	// Suggest maps the requested buffer range to candidates.
	Suggest func(buffer string) []string
	// Source reports the dictionary of a candidate. Defaults to
	// DictionaryNone for the literal buffer and DictionaryMain otherwise.
	Source func(index int, candidate string) correction.DictionaryType

	buffer         []rune
	last           []string
	SuggestedIndex int
	Saved          []string
	Context        string
	ContextCursor  int
	LayoutKeys     []correction.LayoutKey
	Taps           []correction.Point
	Calls          []string
}

var _ correction.ScriptEngine = (*Engine)(nil)

// NewEngine returns an engine that echoes its buffer.
func NewEngine(name string) *Engine {
	return &Engine{Name: name, SuggestedIndex: -1}
}

func (e *Engine) record(format string, args ...any) {
	e.Calls = append(e.Calls, fmt.Sprintf(format, args...))
}

func (e *Engine) SetLanguage(tag string, priority correction.LanguagePriority) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetLanguage(%s)", tag)
	if e.LanguageErr != nil {
		return e.LanguageErr
	}
	e.Language = tag
	e.Priority = priority
	return nil
}

func (e *Engine) EnableCorrection()  { e.set(&e.Correction, true, "EnableCorrection") }
func (e *Engine) DisableCorrection() { e.set(&e.Correction, false, "DisableCorrection") }
func (e *Engine) EnableCompletion()  { e.set(&e.Completion, true, "EnableCompletion") }
func (e *Engine) DisableCompletion() { e.set(&e.Completion, false, "DisableCompletion") }
func (e *Engine) EnablePrediction()  { e.set(&e.Prediction, true, "EnablePrediction") }
func (e *Engine) DisablePrediction() { e.set(&e.Prediction, false, "DisablePrediction") }

func (e *Engine) EnableFuzzyMatching()  { e.set(&e.Fuzzy, true, "EnableFuzzyMatching") }
func (e *Engine) DisableFuzzyMatching() { e.set(&e.Fuzzy, false, "DisableFuzzyMatching") }

func (e *Engine) set(flag *bool, v bool, call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*flag = v
	e.record("%s", call)
}

func (e *Engine) SetScript(s correction.Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Script = s
	e.record("SetScript(%d)", s)
}

func (e *Engine) SetMaximumCandidates(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.MaxCandidates = n
}

func (e *Engine) SetExactWordPositionInList(pos correction.ExactWordPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ExactPosition = pos
}

func (e *Engine) Candidates(start, length int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if start < 0 || start > len(e.buffer) {
		start = len(e.buffer)
	}
	end := len(e.buffer)
	if length > 0 && start+length < end {
		end = start + length
	}
	text := string(e.buffer[start:end])

	var out []string
	if e.Suggest != nil {
		out = e.Suggest(text)
	} else if text != "" {
		out = []string{text}
	}
	e.last = append([]string(nil), out...)
	return out
}

func (e *Engine) CandidateSource(i int) correction.DictionaryType {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.last) {
		return correction.DictionaryNone
	}
	if e.Source != nil {
		return e.Source(i, e.last[i])
	}
	if e.last[i] == string(e.buffer) {
		return correction.DictionaryNone
	}
	return correction.DictionaryMain
}

func (e *Engine) TapKeyboard(p correction.Point, shifted bool, r rune) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Taps = append(e.Taps, p)
	e.buffer = append(e.buffer, r)
}

func (e *Engine) AppendCharacter(r rune) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, r)
}

func (e *Engine) ReselectString(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("ReselectString(%s)", text)
	e.buffer = []rune(text)
}

func (e *Engine) ClearEngineBuffer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("ClearEngineBuffer")
	e.buffer = nil
	e.last = nil
}

func (e *Engine) SaveAndClearEngineBuffer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SaveAndClearEngineBuffer")
	if len(e.buffer) > 0 {
		e.Saved = append(e.Saved, string(e.buffer))
	}
	e.buffer = nil
	e.last = nil
}

func (e *Engine) SetSuggestedCandidateIndex(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("SetSuggestedCandidateIndex(%d)", i)
	e.SuggestedIndex = i
}

func (e *Engine) SetKeyboardLayoutKeys(keys []correction.LayoutKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LayoutKeys = append([]correction.LayoutKey(nil), keys...)
}

func (e *Engine) SetContext(text string, cursor int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Context = text
	e.ContextCursor = cursor
}

// Buffer returns the engine's current copy of the typed word.
func (e *Engine) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buffer)
}

// Called reports whether a call with the given prefix was recorded.
func (e *Engine) Called(prefix string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// ErrCreate is returned by a Factory configured to fail.
var ErrCreate = errors.New("correctiontest: engine unavailable")

// Factory hands out fake engines and counts releases.
type Factory struct {
	mu sync.Mutex

	// Fail makes Create return ErrCreate for these names.
	Fail map[string]bool
	// Configure runs on every engine before it is returned.
	Configure func(*Engine)

	Created  []*Engine
	released map[*Engine]int
}

var _ correction.Factory = (*Factory)(nil)

func (f *Factory) Create(name string) (correction.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail[name] {
		return nil, fmt.Errorf("create %s: %w", name, ErrCreate)
	}
	e := NewEngine(name)
	if f.Configure != nil {
		f.Configure(e)
	}
	f.Created = append(f.Created, e)
	return e, nil
}

func (f *Factory) Release(e correction.Engine) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fe, ok := e.(*Engine)
	if !ok {
		return
	}
	if f.released == nil {
		f.released = make(map[*Engine]int)
	}
	f.released[fe]++
}

// Releases returns how many times e was released.
func (f *Factory) Releases(e *Engine) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[e]
}

// Last returns the most recently created engine, or nil.
func (f *Factory) Last() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}
