// Package cleanup keeps the chat transcript tidy: it records which bot
// messages belong to an ephemeral exchange and deletes them once their time
// has come, and it drops expired questions.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/korjavin/topicquizbot/models"
	"github.com/rs/zerolog/log"
)

// DefaultDelay is how long an ephemeral exchange stays in the chat.
const DefaultDelay = 20 * time.Second

// ChainStore persists message chains.
type ChainStore interface {
	CreateChain(ctx context.Context, c *models.MessageChain) error
	DueChains(ctx context.Context, now time.Time) ([]models.MessageChain, error)
	DeleteChain(ctx context.Context, id int64) error
}

// Tracker registers message chains for later deletion.
type Tracker struct {
	store ChainStore
	delay time.Duration
	now   func() time.Time
}

// NewTracker returns a Tracker; delay <= 0 means DefaultDelay.
func NewTracker(store ChainStore, delay time.Duration) *Tracker {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Tracker{store: store, delay: delay, now: time.Now}
}

// Track schedules messageIDs of userID's chat for deletion at deleteAt, or
// after the default delay when deleteAt is zero. deleteAt must be in the future.
func (t *Tracker) Track(ctx context.Context, userID int64, questionID *int64, messageIDs []int, deleteAt time.Time) (*models.MessageChain, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	now := t.now()
	if deleteAt.IsZero() {
		deleteAt = now.Add(t.delay)
	}
	if !deleteAt.After(now) {
		return nil, fmt.Errorf("%w: %v", models.ErrDeleteInPast, deleteAt)
	}

	chain := &models.MessageChain{
		UserID:     userID,
		QuestionID: questionID,
		MessageIDs: append([]int(nil), messageIDs...),
		CreatedAt:  now,
		DeleteAt:   deleteAt,
	}
	if err := t.store.CreateChain(ctx, chain); err != nil {
		return nil, err
	}

	log.Debug().
		Int64("user_id", userID).
		Int64("chain_id", chain.ID).
		Ints("message_ids", chain.MessageIDs).
		Time("delete_at", deleteAt).
		Msg("message chain created")
	return chain, nil
}

// TrackAfter schedules deletion after d; d <= 0 means the default delay.
func (t *Tracker) TrackAfter(ctx context.Context, userID int64, questionID *int64, messageIDs []int, d time.Duration) (*models.MessageChain, error) {
	var deleteAt time.Time
	if d > 0 {
		deleteAt = t.now().Add(d)
	}
	return t.Track(ctx, userID, questionID, messageIDs, deleteAt)
}
