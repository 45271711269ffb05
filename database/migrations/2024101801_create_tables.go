package migrations

import (
	"context"
	"fmt"

	"github.com/korjavin/topicquizbot/models"
	"github.com/uptrace/bun"
)

func init() {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Question)(nil),
		(*models.Answer)(nil),
		(*models.MessageChain)(nil),
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Question)(nil), "questions_user_created_idx", []string{"user_id", "created_at"}},
		{(*models.Question)(nil), "questions_expires_at_idx", []string{"expires_at"}},
		{(*models.Answer)(nil), "answers_user_created_idx", []string{"user_id", "created_at"}},
		{(*models.MessageChain)(nil), "message_chains_delete_at_idx", []string{"delete_at"}},
		{(*models.User)(nil), "users_frequency_idx", []string{"frequency", "is_active"}},
	}

	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, model := range tables {
				if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("create table: %w", err)
				}
			}
			for _, idx := range indexes {
				if _, err := db.NewCreateIndex().
					Model(idx.model).
					Index(idx.name).
					Column(idx.columns...).
					IfNotExists().
					Exec(ctx); err != nil {
					return fmt.Errorf("create index %s: %w", idx.name, err)
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			for i := len(tables) - 1; i >= 0; i-- {
				if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
