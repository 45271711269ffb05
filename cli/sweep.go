package cli

import (
	"context"
	"errors"

	"github.com/korjavin/topicquizbot/bot"
	"github.com/korjavin/topicquizbot/cleanup"
	"github.com/korjavin/topicquizbot/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewSweepCmd runs one cleanup pass and exits.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete due chat messages and expired questions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), *configPath)
		},
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Bot.Token == "" {
		return errors.New("BOT_TOKEN environment variable is required")
	}

	db, err := database.New(ctx, dbOptions(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	api, err := bot.NewAPI(cfg.Bot.Token, cfg.Bot.Debug)
	if err != nil {
		return err
	}

	sweeper := cleanup.NewSweeper(db, db, bot.NewTransport(api))
	res, err := sweeper.SweepMessages(ctx)
	if err != nil {
		return err
	}
	questions, err := sweeper.SweepQuestions(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("chains", res.Chains).
		Int("messages_deleted", res.Deleted).
		Int("messages_failed", res.Failed).
		Int64("questions_deleted", questions).
		Msg("sweep finished")
	return nil
}
