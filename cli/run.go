package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/korjavin/topicquizbot/ai"
	"github.com/korjavin/topicquizbot/bot"
	"github.com/korjavin/topicquizbot/cleanup"
	"github.com/korjavin/topicquizbot/config"
	"github.com/korjavin/topicquizbot/database"
	"github.com/korjavin/topicquizbot/health"
	"github.com/korjavin/topicquizbot/quiz"
	"github.com/korjavin/topicquizbot/scheduler"
	"github.com/korjavin/topicquizbot/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRunCmd builds the CLI subcommand that starts the bot.
func NewRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot, the cleanup sweeper and the question scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("starting topic quiz bot")

	db, err := database.New(ctx, dbOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	checks := map[string]health.Check{"database": db.Ping}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		sessions = session.NewRedisStore(client, cfg.SessionTTL())
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sessions stored in redis")
	}

	generator, closeGenerator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGenerator()

	api, err := bot.NewAPI(cfg.Bot.Token, cfg.Bot.Debug)
	if err != nil {
		return err
	}
	transport := bot.NewTransport(api)

	engine := quiz.NewEngine(db, sessions, generator, cleanup.NewTracker(db, cfg.DeleteDelay()), transport, quiz.Options{
		Retention: cfg.Retention(),
		PromptTTL: cfg.PromptTTL(),
		ReplyTTL:  cfg.DeleteDelay(),
		Location:  loc,
	})
	sweeper := cleanup.NewSweeper(db, db, transport)
	sched, err := scheduler.New(db, engine, sweeper, scheduler.Config{
		Delay:    cfg.FanoutDelay(),
		Location: loc,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.New(api, engine).Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx, cfg.CleanupInterval()) })
	g.Go(func() error { return sched.Run(gctx) })
	if cfg.Health.Addr != "off" {
		g.Go(func() error { return health.Serve(gctx, cfg.Health.Addr, health.NewRouter(checks)) })
	}

	err = g.Wait()
	log.Info().Msg("bot stopped")
	return err
}

// newGenerator picks the question generator. Without one every question is
// a built-in fallback.
func newGenerator(ctx context.Context, cfg *config.Config) (ai.Generator, func(), error) {
	noop := func() {}

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLMTimeout())
		if err != nil {
			return nil, noop, err
		}
		return client, func() { client.Close() }, nil
	case config.ProviderNone:
		log.Warn().Msg("no LLM configured, only built-in questions will be sent")
		return nil, noop, nil
	default:
		return ai.NewChatClient(ai.ChatConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		}), noop, nil
	}
}
