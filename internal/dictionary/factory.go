package dictionary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/logging"
)

// Engine names accepted by Factory.Create.
const (
	NameDefault = "default"
	NameCJK     = "cjk"
)

// Factory creates word-list engines that share parsed lexicons.
type Factory struct {
	// DataDir holds one "<language>.words" file per language. Traditional
	// Chinese may be provided as "zh-Hant.words".
	DataDir string
	// User stores learned words. May be nil.
	User UserDictionary
	// CacheTTL bounds how long candidate lists are memoized. Zero keeps them
	// until the engine state changes.
	CacheTTL time.Duration
	Logger   *logging.Logger

	mu       sync.Mutex
	lexicons map[string]*Lexicon
	live     map[*Engine]bool
}

var _ correction.Factory = (*Factory)(nil)

// Create returns a new engine. name is NameDefault or NameCJK.
func (f *Factory) Create(name string) (correction.Engine, error) {
	var kind Kind
	switch name {
	case NameDefault:
		kind = KindDefault
	case NameCJK:
		kind = KindCJK
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}

	logger := logging.OrDefault(f.Logger).WithComponent("dictionary")
	e := &Engine{
		kind:      kind,
		lexicon:   f.lexicon,
		user:      f.User,
		logger:    logger,
		cache:     newCache(f.CacheTTL),
		suggested: -1,
	}

	f.mu.Lock()
	if f.live == nil {
		f.live = make(map[*Engine]bool)
	}
	f.live[e] = true
	f.mu.Unlock()

	logger.Debug("engine created", "kind", kind.String())
	return e, nil
}

// Release drops the engine. Releasing an engine twice, or one this factory
// did not create, does nothing.
func (f *Factory) Release(ce correction.Engine) {
	e, ok := ce.(*Engine)
	if !ok {
		return
	}

	f.mu.Lock()
	live := f.live[e]
	delete(f.live, e)
	f.mu.Unlock()

	if live {
		e.release()
	}
}

// Live returns the number of engines created and not yet released.
func (f *Factory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *Factory) lexicon(language string, script correction.Script) (*Lexicon, error) {
	var lastErr error
	for _, path := range f.candidatePaths(language, script) {
		lex, err := f.loadCached(path)
		if err == nil {
			return lex, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNoDictionary) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Factory) candidatePaths(language string, script correction.Script) []string {
	var names []string
	base := language
	if i := strings.IndexAny(language, "_-"); i > 0 {
		base = language[:i]
	}
	if base == "zh" && script == correction.ScriptTraditional {
		names = append(names, "zh-Hant")
	}
	names = append(names, language)
	if base != language {
		names = append(names, base)
	}

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(f.DataDir, n+".words")
	}
	return paths
}

func (f *Factory) loadCached(path string) (*Lexicon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lex, ok := f.lexicons[path]; ok {
		return lex, nil
	}
	if f.DataDir == "" {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoDictionary)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoDictionary)
	}

	lex, err := LoadLexiconFile(path)
	if err != nil {
		return nil, err
	}
	if f.lexicons == nil {
		f.lexicons = make(map[string]*Lexicon)
	}
	f.lexicons[path] = lex
	logging.OrDefault(f.Logger).Debug("word list loaded", "path", path, "readings", lex.Len())
	return lex, nil
}
