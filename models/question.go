package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Kind is the answer format of a question.
type Kind string

const (
	KindSingle Kind = "single_choice"
	KindMulti  Kind = "multi_choice"
	KindText   Kind = "text_input"
)

// Kinds lists every supported kind; generators pick from it at random.
var Kinds = []Kind{KindSingle, KindMulti, KindText}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSingle, KindMulti, KindText:
		return true
	}
	return false
}

// GeneratedQuestion is what a question generator returns before it is stored.
type GeneratedQuestion struct {
	Kind           Kind     `json:"type"`
	Text           string   `json:"question"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correctAnswer"`
	Explanation    string   `json:"explanation"`
	Topic          string   `json:"field"`
}

// Question is a generated quiz item owned by one user.
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID             int64     `bun:"id,pk,autoincrement"`
	UserID         int64     `bun:"user_id,notnull"`
	Kind           Kind      `bun:"kind,notnull"`
	Text           string    `bun:"text,notnull"`
	Options        []string  `bun:"options,type:text"`
	CorrectAnswers []string  `bun:"correct_answers,type:text,notnull"`
	Explanation    string    `bun:"explanation,notnull"`
	Topic          string    `bun:"topic,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	ExpiresAt      time.Time `bun:"expires_at,notnull"`
}

// NewQuestion builds a storable question from generator output.
func NewQuestion(userID int64, g GeneratedQuestion, now time.Time, retention time.Duration) *Question {
	return &Question{
		UserID:         userID,
		Kind:           g.Kind,
		Text:           g.Text,
		Options:        g.Options,
		CorrectAnswers: g.CorrectAnswers,
		Explanation:    g.Explanation,
		Topic:          g.Topic,
		CreatedAt:      now,
		ExpiresAt:      now.Add(retention),
	}
}

// Validate checks the option/correct-answer invariants of a generated question.
func (g GeneratedQuestion) Validate() error {
	if !g.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidQuestion, g.Kind)
	}
	if strings.TrimSpace(g.Text) == "" || strings.TrimSpace(g.Explanation) == "" {
		return fmt.Errorf("%w: empty text or explanation", ErrInvalidQuestion)
	}
	if len(g.CorrectAnswers) == 0 {
		return fmt.Errorf("%w: no correct answer", ErrInvalidQuestion)
	}

	if g.Kind == KindText {
		if len(g.Options) != 0 {
			return fmt.Errorf("%w: free-text question with options", ErrInvalidQuestion)
		}
		if len(g.CorrectAnswers) != 1 {
			return fmt.Errorf("%w: free-text question needs exactly one answer", ErrInvalidQuestion)
		}
		return nil
	}

	if len(g.Options) == 0 {
		return fmt.Errorf("%w: %s question without options", ErrInvalidQuestion, g.Kind)
	}
	if g.Kind == KindSingle && len(g.CorrectAnswers) != 1 {
		return fmt.Errorf("%w: single-choice question needs exactly one answer", ErrInvalidQuestion)
	}
	for _, answer := range g.CorrectAnswers {
		if !contains(g.Options, answer) {
			return fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidQuestion, answer)
		}
	}
	return nil
}

// Generated returns the generator-facing view of a stored question.
func (q *Question) Generated() GeneratedQuestion {
	return GeneratedQuestion{
		Kind:           q.Kind,
		Text:           q.Text,
		Options:        q.Options,
		CorrectAnswers: q.CorrectAnswers,
		Explanation:    q.Explanation,
		Topic:          q.Topic,
	}
}

// Option returns the option at index i.
func (q *Question) Option(i int) (string, error) {
	if i < 0 || i >= len(q.Options) {
		return "", fmt.Errorf("%w: %d of %d", ErrOptionOutOfRange, i, len(q.Options))
	}
	return q.Options[i], nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
