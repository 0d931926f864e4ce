package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/fleet-service-api/internal/models"
)

// ActivityLogRepository appends lifecycle activity entries.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository constructs the repository.
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append inserts one entry. Entries are never updated.
func (r *ActivityLogRepository) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry == nil {
		return fmt.Errorf("activity entry is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if len(entry.Meta) == 0 {
		entry.Meta = types.JSONText(`{}`)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO activity_log (id, request_id, actor_id, actor_role, action, from_status, to_status, meta, created_at)
VALUES (:id, :request_id, :actor_id, :actor_role, :action, :from_status, :to_status, :meta, :created_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// ListByRequest returns a request's activity in chronological order.
func (r *ActivityLogRepository) ListByRequest(ctx context.Context, requestID string) ([]models.ActivityLogEntry, error) {
	const query = `SELECT id, request_id, actor_id, actor_role, action, from_status, to_status, meta, created_at
FROM activity_log WHERE request_id = $1 ORDER BY created_at, id`
	var entries []models.ActivityLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, requestID); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}
