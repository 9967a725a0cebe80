// Package store persists the words a user commits so the reference
// correction engine can learn them.
package store

import "time"

// Word is a learned word and how often it was committed.
type Word struct {
	Language  string
	Text      string
	Frequency int
	UpdatedAt time.Time
}

// Bigram records that Word followed Previous.
type Bigram struct {
	Language  string
	Previous  string
	Word      string
	Frequency int
}
