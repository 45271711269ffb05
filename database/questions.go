package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/korjavin/topicquizbot/models"
)

// CreateQuestion stores a generated question and fills in its id.
func (db *DB) CreateQuestion(ctx context.Context, q *models.Question) error {
	q.CreatedAt = q.CreatedAt.UTC()
	q.ExpiresAt = q.ExpiresAt.UTC()
	if _, err := db.conn.NewInsert().Model(q).Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// GetQuestion loads a question by id.
func (db *DB) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	q := new(models.Question)
	err := db.conn.NewSelect().Model(q).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select question %d: %w", id, err)
	}
	return q, nil
}

// HasQuestionSince reports whether the user was given a question at or after since.
func (db *DB) HasQuestionSince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	exists, err := db.conn.NewSelect().
		Model((*models.Question)(nil)).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since.UTC()).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check recent questions: %w", err)
	}
	return exists, nil
}

// DeleteExpiredQuestions removes every question whose expiry is at or before now.
func (db *DB) DeleteExpiredQuestions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.NewDelete().
		Model((*models.Question)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired questions: %w", err)
	}
	return res.RowsAffected()
}
