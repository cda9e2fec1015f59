package session

import (
	"time"

	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/google/uuid"
)

// Session is the state of one analysis: the corpus, the results derived
// from it and the Q&A history. Operations receive it explicitly.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Corpus is the concatenated text of every uploaded file.
	Corpus  string
	Sources []string

	GapTable     *table.Table
	ConciseTable *table.Table
	Review       string

	History ChatHistory
}

// New creates an empty session.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// SetCorpus installs a new corpus and drops results derived from the old
// one. The chat history is kept.
func (s *Session) SetCorpus(corpus string, sources []string) {
	s.Corpus = corpus
	s.Sources = append([]string(nil), sources...)
	s.GapTable = nil
	s.ConciseTable = nil
	s.Review = ""
}

// HasCorpus reports whether any text has been extracted.
func (s *Session) HasCorpus() bool {
	return s.Corpus != ""
}

// Summary is the JSON view of a session.
type Summary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Sources         []string  `json:"sources"`
	CorpusChars     int       `json:"corpus_chars"`
	HasGapTable     bool      `json:"has_gap_table"`
	HasConciseTable bool      `json:"has_concise_table"`
	HasReview       bool      `json:"has_review"`
	Turns           int       `json:"turns"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:              s.ID,
		CreatedAt:       s.CreatedAt,
		Sources:         s.Sources,
		CorpusChars:     len([]rune(s.Corpus)),
		HasGapTable:     s.GapTable != nil,
		HasConciseTable: s.ConciseTable != nil,
		HasReview:       s.Review != "",
		Turns:           s.History.Len(),
	}
}
