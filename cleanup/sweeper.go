package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// QuestionStore removes expired questions.
type QuestionStore interface {
	DeleteExpiredQuestions(ctx context.Context, now time.Time) (int64, error)
}

// Deleter removes a message from a chat.
type Deleter interface {
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Result summarizes one message sweep.
type Result struct {
	Chains  int
	Deleted int
	Failed  int
}

// Sweeper deletes due message chains and expired questions.
type Sweeper struct {
	chains    ChainStore
	questions QuestionStore
	deleter   Deleter
	now       func() time.Time
}

func NewSweeper(chains ChainStore, questions QuestionStore, deleter Deleter) *Sweeper {
	return &Sweeper{
		chains:    chains,
		questions: questions,
		deleter:   deleter,
		now:       time.Now,
	}
}

// SweepMessages deletes the messages of every chain whose time has passed.
// A chain record is removed after the attempt whether or not its messages
// could be deleted.
func (s *Sweeper) SweepMessages(ctx context.Context) (Result, error) {
	var res Result

	chains, err := s.chains.DueChains(ctx, s.now())
	if err != nil {
		return res, err
	}
	if len(chains) == 0 {
		return res, nil
	}

	log.Info().Int("chains", len(chains)).Msg("cleaning up expired message chains")

	for _, chain := range chains {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		for _, messageID := range chain.MessageIDs {
			if err := s.deleter.Delete(ctx, chain.UserID, messageID); err != nil {
				// already deleted, or the user blocked the bot
				log.Debug().Err(err).
					Int64("user_id", chain.UserID).
					Int("message_id", messageID).
					Msg("could not delete message")
				res.Failed++
				continue
			}
			res.Deleted++
		}

		if err := s.chains.DeleteChain(ctx, chain.ID); err != nil {
			log.Error().Err(err).Int64("chain_id", chain.ID).Msg("error removing message chain")
			continue
		}
		res.Chains++
	}
	return res, nil
}

// SweepQuestions deletes every question whose expiry has passed.
func (s *Sweeper) SweepQuestions(ctx context.Context) (int64, error) {
	n, err := s.questions.DeleteExpiredQuestions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("cleaned up expired questions")
	}
	return n, nil
}

// Run sweeps messages every interval until ctx is done. Ticks run one after
// another, so a slow sweep delays the next one instead of overlapping it.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("message sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("message sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepMessages(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("message sweep failed")
			}
		}
	}
}
