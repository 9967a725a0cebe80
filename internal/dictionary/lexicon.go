// Package dictionary implements a word-list correction engine. It is a
// reference implementation of correction.ScriptEngine that keeps the
// composition pipeline usable without a commercial engine.
package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/derekparker/trie"
)

var (
	// ErrNoDictionary is returned when a language has no word list.
	ErrNoDictionary = errors.New("dictionary: no word list for language")
	// ErrUnknownEngine is returned by Factory.Create for unsupported names.
	ErrUnknownEngine = errors.New("dictionary: unknown engine")
)

// Entry is one word of a lexicon.
type Entry struct {
	Reading string
	Word    string
	Freq    int
}

// Lexicon is a word list indexed by reading. For alphabetic languages the
// reading is the lower-cased word; for CJK lists it is the romanization.
type Lexicon struct {
	trie  *trie.Trie
	keys  []string
	words map[string]bool
}

// ParseLexicon reads lines of the form "word", "word<TAB>freq" or
// "reading<TAB>word<TAB>freq". Blank lines and lines starting with '#' are
// skipped.
func ParseLexicon(r io.Reader) (*Lexicon, error) {
	byReading := make(map[string][]Entry)
	words := make(map[string]bool)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		var e Entry
		var err error
		switch len(fields) {
		case 1:
			e = Entry{Word: fields[0], Freq: 1}
		case 2:
			e.Word = fields[0]
			e.Freq, err = strconv.Atoi(strings.TrimSpace(fields[1]))
		case 3:
			e.Reading = fields[0]
			e.Word = fields[1]
			e.Freq, err = strconv.Atoi(strings.TrimSpace(fields[2]))
		default:
			err = fmt.Errorf("expected 1 to 3 fields, got %d", len(fields))
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		e.Word = strings.TrimSpace(e.Word)
		if e.Reading == "" {
			e.Reading = e.Word
		}
		e.Reading = foldKey(e.Reading)
		byReading[e.Reading] = append(byReading[e.Reading], e)
		words[strings.ToLower(e.Word)] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}

	l := &Lexicon{trie: trie.New(), words: words}
	for reading, entries := range byReading {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Freq > entries[j].Freq })
		l.trie.Add(reading, entries)
		l.keys = append(l.keys, reading)
	}
	sort.Strings(l.keys)
	return l, nil
}

// LoadLexiconFile opens and parses a word list. A missing file yields
// ErrNoDictionary.
func LoadLexiconFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoDictionary)
	}
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	l, err := ParseLexicon(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return l, nil
}

// Lookup returns the entries stored under an exact reading.
func (l *Lexicon) Lookup(reading string) []Entry {
	node, ok := l.trie.Find(foldKey(reading))
	if !ok {
		return nil
	}
	entries, _ := node.Meta().([]Entry)
	return entries
}

// Complete returns entries whose reading starts with prefix, most frequent
// first. The exact reading itself is included.
func (l *Lexicon) Complete(prefix string) []Entry {
	var out []Entry
	for _, key := range l.trie.PrefixSearch(foldKey(prefix)) {
		out = append(out, l.Lookup(key)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Freq != out[j].Freq {
			return out[i].Freq > out[j].Freq
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// Contains reports whether word is in the lexicon, ignoring case.
func (l *Lexicon) Contains(word string) bool {
	return l.words[strings.ToLower(word)]
}

// Readings returns every reading in sorted order.
func (l *Lexicon) Readings() []string {
	return l.keys
}

// Len returns the number of distinct readings.
func (l *Lexicon) Len() int {
	return len(l.keys)
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
