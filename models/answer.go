package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Answer is one graded submission. It is never updated after insert.
type Answer struct {
	bun.BaseModel `bun:"table:answers"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	QuestionID int64     `bun:"question_id,notnull"`
	Values     []string  `bun:"user_answer,type:text,notnull"`
	IsCorrect  bool      `bun:"is_correct,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`

	Question *Question `bun:"rel:belongs-to,join:question_id=id"`
}
