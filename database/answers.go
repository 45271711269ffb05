package database

import (
	"context"
	"fmt"

	"github.com/korjavin/topicquizbot/models"
)

// CreateAnswer records a graded submission.
func (db *DB) CreateAnswer(ctx context.Context, a *models.Answer) error {
	a.CreatedAt = a.CreatedAt.UTC()
	if _, err := db.conn.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// RecentAnswers returns the user's latest answers, newest first, with their questions
// attached when they still exist.
func (db *DB) RecentAnswers(ctx context.Context, userID int64, limit int) ([]models.Answer, error) {
	var answers []models.Answer
	err := db.conn.NewSelect().
		Model(&answers).
		Relation("Question").
		Where("answer.user_id = ?", userID).
		OrderExpr("answer.created_at DESC, answer.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select recent answers: %w", err)
	}
	return answers, nil
}

// GetUserStats retrieves statistics about the user's answers
func (db *DB) GetUserStats(ctx context.Context, userID int64) (correct int, incorrect int, err error) {
	correct, err = db.conn.NewSelect().
		Model((*models.Answer)(nil)).
		Where("user_id = ?", userID).
		Where("is_correct = ?", true).
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count correct answers: %w", err)
	}

	incorrect, err = db.conn.NewSelect().
		Model((*models.Answer)(nil)).
		Where("user_id = ?", userID).
		Where("is_correct = ?", false).
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count incorrect answers: %w", err)
	}
	return correct, incorrect, nil
}
