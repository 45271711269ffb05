package database

import (
	"context"
	"fmt"
	"time"

	"github.com/korjavin/topicquizbot/models"
)

// CreateChain stores a message chain scheduled for deletion.
func (db *DB) CreateChain(ctx context.Context, c *models.MessageChain) error {
	c.CreatedAt = c.CreatedAt.UTC()
	c.DeleteAt = c.DeleteAt.UTC()
	if _, err := db.conn.NewInsert().Model(c).Exec(ctx); err != nil {
		return fmt.Errorf("insert message chain: %w", err)
	}
	return nil
}

// DueChains returns chains whose deletion time is at or before now, oldest first.
func (db *DB) DueChains(ctx context.Context, now time.Time) ([]models.MessageChain, error) {
	var chains []models.MessageChain
	err := db.conn.NewSelect().
		Model(&chains).
		Where("delete_at <= ?", now.UTC()).
		Order("delete_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select due message chains: %w", err)
	}
	return chains, nil
}

// DeleteChain removes a chain record.
func (db *DB) DeleteChain(ctx context.Context, id int64) error {
	_, err := db.conn.NewDelete().
		Model((*models.MessageChain)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete message chain %d: %w", id, err)
	}
	return nil
}
