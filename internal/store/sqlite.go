package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrEmptyWord is returned when learning a blank word.
var ErrEmptyWord = errors.New("store: empty word")

// Store is the SQLite user dictionary.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database at the given path and runs
// migrations. MemoryPath keeps everything in memory.
func Open(path string) (*Store, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if path == MemoryPath {
		dsn = MemoryPath + "?_foreign_keys=on"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every in-memory connection is a separate database, so keep one.
	db.SetMaxOpenConns(1)

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Learn records one more commit of word in language.
func (s *Store) Learn(language, word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrEmptyWord
	}

	_, err := s.db.Exec(`
		INSERT INTO words (language, word, frequency, updated_ns)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(language, word) DO UPDATE SET
			frequency = frequency + 1,
			updated_ns = excluded.updated_ns`,
		language, word, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("learn word: %w", err)
	}
	return nil
}

// LearnBigram records that word was committed right after previous.
func (s *Store) LearnBigram(language, previous, word string) error {
	previous, word = strings.TrimSpace(previous), strings.TrimSpace(word)
	if previous == "" || word == "" {
		return ErrEmptyWord
	}

	_, err := s.db.Exec(`
		INSERT INTO bigrams (language, previous, word, frequency)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(language, previous, word) DO UPDATE SET
			frequency = frequency + 1`,
		language, strings.ToLower(previous), word,
	)
	if err != nil {
		return fmt.Errorf("learn bigram: %w", err)
	}
	return nil
}

// Frequency returns how often word was learned, zero if never.
func (s *Store) Frequency(language, word string) (int, error) {
	var freq int
	err := s.db.QueryRow(
		"SELECT frequency FROM words WHERE language = ? AND word = ?",
		language, word,
	).Scan(&freq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query frequency: %w", err)
	}
	return freq, nil
}

// Words returns every learned word for language, most frequent first.
func (s *Store) Words(language string) ([]Word, error) {
	rows, err := s.db.Query(`
		SELECT word, frequency, updated_ns FROM words
		WHERE language = ?
		ORDER BY frequency DESC, word ASC`,
		language,
	)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var words []Word
	for rows.Next() {
		w := Word{Language: language}
		var updated int64
		if err := rows.Scan(&w.Text, &w.Frequency, &updated); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		w.UpdatedAt = time.Unix(0, updated)
		words = append(words, w)
	}
	return words, rows.Err()
}

// Next returns up to limit words seen after previous, most frequent first.
// The previous word is matched case-insensitively.
func (s *Store) Next(language, previous string, limit int) ([]Bigram, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT word, frequency FROM bigrams
		WHERE language = ? AND previous = ?
		ORDER BY frequency DESC, word ASC
		LIMIT ?`,
		language, strings.ToLower(strings.TrimSpace(previous)), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query bigrams: %w", err)
	}
	defer rows.Close()

	var out []Bigram
	for rows.Next() {
		b := Bigram{Language: language, Previous: previous}
		if err := rows.Scan(&b.Word, &b.Frequency); err != nil {
			return nil, fmt.Errorf("scan bigram: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Forget removes word and every bigram that mentions it.
func (s *Store) Forget(language, word string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM words WHERE language = ? AND word = ?", language, word); err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM bigrams WHERE language = ? AND (word = ? OR previous = ?)",
		language, word, strings.ToLower(word),
	); err != nil {
		return fmt.Errorf("delete bigrams: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NextWords returns only the words of Next.
func (s *Store) NextWords(language, previous string, limit int) ([]string, error) {
	next, err := s.Next(language, previous, limit)
	if err != nil {
		return nil, err
	}
	words := make([]string, len(next))
	for i, b := range next {
		words[i] = b.Word
	}
	return words, nil
}
