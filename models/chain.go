package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MessageChain groups chat messages that must be deleted at DeleteAt.
type MessageChain struct {
	bun.BaseModel `bun:"table:message_chains"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	QuestionID *int64    `bun:"question_id"`
	MessageIDs []int     `bun:"message_ids,type:text,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	DeleteAt   time.Time `bun:"delete_at,notnull"`
}
