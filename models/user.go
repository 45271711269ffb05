package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Frequency is how often scheduled questions are pushed to a user.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyEvery2Days Frequency = "every_2_days"
	FrequencyEvery4Days Frequency = "every_4_days"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyDisabled   Frequency = "disabled"
)

// Frequencies is the order in which frequencies are offered to users.
var Frequencies = []Frequency{
	FrequencyDaily,
	FrequencyEvery2Days,
	FrequencyEvery4Days,
	FrequencyWeekly,
	FrequencyDisabled,
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if v == f {
			return true
		}
	}
	return false
}

// User is a registered chat participant. TelegramID doubles as the private chat id.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID         int64     `bun:"id,pk,autoincrement"`
	TelegramID int64     `bun:"telegram_id,notnull,unique"`
	Username   string    `bun:"username"`
	FirstName  string    `bun:"first_name"`
	Topic      string    `bun:"topic,notnull"`
	Frequency  Frequency `bun:"frequency,notnull"`
	IsActive   bool      `bun:"is_active,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}
