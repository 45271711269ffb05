// Package scheduler pushes questions to subscribers on fixed wall-clock
// schedules and runs the daily question expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/korjavin/topicquizbot/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultSpecs are the cron schedules of each frequency tier.
var DefaultSpecs = map[models.Frequency]string{
	models.FrequencyDaily:      "0 9 * * *",
	models.FrequencyEvery2Days: "0 10 */2 * *",
	models.FrequencyEvery4Days: "0 11 */4 * *",
	models.FrequencyWeekly:     "0 12 * * 0",
}

const (
	DefaultExpirySpec = "0 2 * * *"
	DefaultDelay      = time.Second

	// users who got any question this recently are skipped
	recentWindow = 24 * time.Hour
)

// Store is what fan-out reads.
type Store interface {
	ActiveSubscribers(ctx context.Context, freq models.Frequency) ([]models.User, error)
	HasQuestionSince(ctx context.Context, userID int64, since time.Time) (bool, error)
}

// Pusher sends one question to a user.
type Pusher interface {
	Push(ctx context.Context, u *models.User) (*models.Question, error)
}

// Sweeper removes expired questions.
type Sweeper interface {
	SweepQuestions(ctx context.Context) (int64, error)
}

// Config overrides the default schedules.
type Config struct {
	Specs      map[models.Frequency]string
	ExpirySpec string
	// Delay between pushes to consecutive users.
	Delay    time.Duration
	Location *time.Location
}

// Report summarizes one fan-out.
type Report struct {
	Users   int
	Sent    int
	Skipped int
	Failed  int
}

// Scheduler owns the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	store   Store
	pusher  Pusher
	sweeper Sweeper
	delay   time.Duration
	now     func() time.Time
	ctx     context.Context
}

// New registers the fan-out and expiry jobs. Jobs do not run until Run.
func New(store Store, pusher Pusher, sweeper Sweeper, cfg Config) (*Scheduler, error) {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ExpirySpec == "" {
		cfg.ExpirySpec = DefaultExpirySpec
	}

	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		store:   store,
		pusher:  pusher,
		sweeper: sweeper,
		delay:   cfg.Delay,
		now:     time.Now,
		ctx:     context.Background(),
	}

	for _, freq := range models.Frequencies {
		spec, ok := cfg.Specs[freq]
		if !ok {
			spec, ok = DefaultSpecs[freq]
		}
		if !ok {
			continue
		}
		freq := freq
		if _, err := s.cron.AddFunc(spec, func() { s.runFanOut(freq) }); err != nil {
			return nil, fmt.Errorf("schedule %s fan-out %q: %w", freq, spec, err)
		}
		log.Info().Str("frequency", string(freq)).Str("spec", spec).Msg("fan-out scheduled")
	}

	if _, err := s.cron.AddFunc(cfg.ExpirySpec, s.runExpirySweep); err != nil {
		return nil, fmt.Errorf("schedule question expiry %q: %w", cfg.ExpirySpec, err)
	}
	return s, nil
}

// Run starts the jobs and blocks until ctx is done, then waits for running
// jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
	return nil
}

// FanOut pushes one question to every active subscriber of freq who has
// not had a question in the last 24 hours. Failures are logged per user.
func (s *Scheduler) FanOut(ctx context.Context, freq models.Frequency) (Report, error) {
	var rep Report

	users, err := s.store.ActiveSubscribers(ctx, freq)
	if err != nil {
		return rep, fmt.Errorf("load %s subscribers: %w", freq, err)
	}
	rep.Users = len(users)
	log.Info().Str("frequency", string(freq)).Int("users", len(users)).Msg("sending scheduled questions")

	limiter := rate.NewLimiter(rate.Every(s.delay), 1)
	for i := range users {
		u := &users[i]

		recent, err := s.store.HasQuestionSince(ctx, u.TelegramID, s.now().Add(-recentWindow))
		if err != nil {
			log.Error().Err(err).Int64("user_id", u.TelegramID).Msg("error checking recent questions")
			rep.Failed++
			continue
		}
		if recent {
			rep.Skipped++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return rep, err
		}
		if _, err := s.pusher.Push(ctx, u); err != nil {
			log.Error().Err(err).Int64("user_id", u.TelegramID).Msg("error sending scheduled question")
			rep.Failed++
			continue
		}
		rep.Sent++
	}
	return rep, nil
}

func (s *Scheduler) runFanOut(freq models.Frequency) {
	rep, err := s.FanOut(s.ctx, freq)
	if err != nil {
		log.Error().Err(err).Str("frequency", string(freq)).Msg("fan-out aborted")
		return
	}
	log.Info().
		Str("frequency", string(freq)).
		Int("sent", rep.Sent).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("fan-out finished")
}

func (s *Scheduler) runExpirySweep() {
	if _, err := s.sweeper.SweepQuestions(s.ctx); err != nil {
		log.Error().Err(err).Msg("question expiry sweep failed")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
