package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/announcements-api/internal/models"
)

// ReadMarkRepository persists per-user read-marks. The (user, announcement)
// pair is unique at the schema level; absence of a row is the unread state.
type ReadMarkRepository struct {
	db *sqlx.DB
}

// NewReadMarkRepository creates the repository.
func NewReadMarkRepository(db *sqlx.DB) *ReadMarkRepository {
	return &ReadMarkRepository{db: db}
}

// Upsert records a read-mark, refreshing the timestamp when the pair already
// exists. A single statement keeps the operation atomic under concurrent
// marks of the same pair.
func (r *ReadMarkRepository) Upsert(ctx context.Context, userID string, announcementID int64, at time.Time) (time.Time, error) {
	const query = `INSERT INTO user_announcements (user_id, announcement_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, announcement_id) DO UPDATE SET created_at = EXCLUDED.created_at
RETURNING created_at`
	var readAt time.Time
	if err := r.db.GetContext(ctx, &readAt, query, userID, announcementID, at); err != nil {
		return time.Time{}, fmt.Errorf("upsert read-mark: %w", err)
	}
	return readAt, nil
}

// Delete removes a read-mark, returning the announcement to the unread
// state. Deleting an absent mark is a no-op.
func (r *ReadMarkRepository) Delete(ctx context.Context, userID string, announcementID int64) error {
	const query = `DELETE FROM user_announcements WHERE user_id = $1 AND announcement_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, announcementID); err != nil {
		return fmt.Errorf("delete read-mark: %w", err)
	}
	return nil
}

// ListForUser returns the user's read-marks for the given announcements.
func (r *ReadMarkRepository) ListForUser(ctx context.Context, userID string, announcementIDs []int64) ([]models.UserAnnouncement, error) {
	if len(announcementIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT user_id, announcement_id, created_at
FROM user_announcements
WHERE user_id = $1 AND announcement_id = ANY($2)`
	var marks []models.UserAnnouncement
	if err := r.db.SelectContext(ctx, &marks, query, userID, pq.Array(announcementIDs)); err != nil {
		return nil, fmt.Errorf("list read-marks: %w", err)
	}
	return marks, nil
}
