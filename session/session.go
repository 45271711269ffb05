// Package session keeps the transient per-user quiz state: the question the
// user is expected to answer in free text and the options toggled so far on
// a multi-choice question. State is not durable; with the in-memory store it
// is lost on restart.
package session

import (
	"context"
	"sort"
)

// State is the per-user session. OpenQuestionID is the free-text question
// awaiting a typed reply; SelectionQuestionID is the multi-choice question
// whose options are being toggled. The two are independent.
type State struct {
	OpenQuestionID      int64 `json:"open_question_id,omitempty"`
	SelectionQuestionID int64 `json:"selection_question_id,omitempty"`
	Selected            []int `json:"selected,omitempty"`
}

// Empty reports whether there is nothing worth storing.
func (s State) Empty() bool {
	return s.OpenQuestionID == 0 && s.SelectionQuestionID == 0 && len(s.Selected) == 0
}

// Toggle flips optionIndex in the selection for questionID. A toggle on
// another question starts a fresh selection. OpenQuestionID is untouched.
func (s *State) Toggle(questionID int64, optionIndex int) {
	if s.SelectionQuestionID != questionID {
		s.SelectionQuestionID = questionID
		s.Selected = nil
	}
	for i, v := range s.Selected {
		if v == optionIndex {
			s.Selected = append(s.Selected[:i:i], s.Selected[i+1:]...)
			return
		}
	}
	s.Selected = append(s.Selected, optionIndex)
	sort.Ints(s.Selected)
}

// SelectionFor returns the toggled options of questionID, or nil when the
// selection belongs to another question.
func (s State) SelectionFor(questionID int64) []int {
	if questionID == 0 || s.SelectionQuestionID != questionID {
		return nil
	}
	return s.Selected
}

// Forget drops whatever the session holds for questionID.
func (s *State) Forget(questionID int64) {
	if s.OpenQuestionID == questionID {
		s.OpenQuestionID = 0
	}
	if s.SelectionQuestionID == questionID {
		s.SelectionQuestionID = 0
		s.Selected = nil
	}
}

// IsSelected reports whether optionIndex is currently toggled on.
func (s State) IsSelected(optionIndex int) bool {
	for _, v := range s.Selected {
		if v == optionIndex {
			return true
		}
	}
	return false
}

// Store abstracts where sessions live (process memory, Redis).
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Set(ctx context.Context, userID int64, state State) error
	Clear(ctx context.Context, userID int64) error
}
