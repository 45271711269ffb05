package models

import "errors"

var (
	// ErrQuestionNotFound is returned when a question id does not resolve, usually because it expired.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound is returned for users that never sent /start.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoTopic is returned when a user asks for a question before choosing a topic.
	ErrNoTopic = errors.New("learning topic not selected")
	// ErrBadCallback indicates callback data that could not be parsed.
	ErrBadCallback = errors.New("malformed callback data")
	// ErrOptionOutOfRange indicates an option index outside the question's option list.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrDeleteInPast is returned when a message chain is scheduled for a time that already passed.
	ErrDeleteInPast = errors.New("scheduled deletion time is not in the future")
	// ErrInvalidQuestion is returned by Question.Validate.
	ErrInvalidQuestion = errors.New("invalid question")
)
