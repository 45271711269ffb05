package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/korjavin/topicquizbot/models"
)

// GetUser loads a user by Telegram id.
func (db *DB) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	u := new(models.User)
	err := db.conn.NewSelect().Model(u).Where("telegram_id = ?", telegramID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user %d: %w", telegramID, err)
	}
	return u, nil
}

// CreateUser registers a new user.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	if _, err := db.conn.NewInsert().Model(u).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateUser saves the mutable profile fields.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = u.UpdatedAt.UTC()
	res, err := db.conn.NewUpdate().
		Model(u).
		Column("topic", "frequency", "is_active", "updated_at").
		Where("telegram_id = ?", u.TelegramID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.TelegramID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// ActiveSubscribers lists active users with a topic at the given frequency.
func (db *DB) ActiveSubscribers(ctx context.Context, freq models.Frequency) ([]models.User, error) {
	var users []models.User
	err := db.conn.NewSelect().
		Model(&users).
		Where("is_active = ?", true).
		Where("frequency = ?", freq).
		Where("topic <> ''").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select subscribers for %s: %w", freq, err)
	}
	return users, nil
}
