package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// schema is applied in order inside one transaction. Every statement is
// idempotent so Migrate can run on each deploy.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS technicians (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		vehicle_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'MEDIUM',
		technician_id TEXT REFERENCES technicians(id),
		scheduled_start TIMESTAMPTZ,
		scheduled_end TIMESTAMPTZ,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		completed_by TEXT,
		office_notes TEXT NOT NULL DEFAULT '',
		technician_notes TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT service_requests_window_ck CHECK (scheduled_end IS NULL OR scheduled_end > scheduled_start)
	)`,
	`CREATE INDEX IF NOT EXISTS service_requests_status_idx ON service_requests (status)`,
	`CREATE TABLE IF NOT EXISTS schedule_blocks (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL UNIQUE REFERENCES service_requests(id) ON DELETE CASCADE,
		technician_id TEXT NOT NULL REFERENCES technicians(id),
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT schedule_blocks_window_ck CHECK (end_at > start_at),
		CONSTRAINT schedule_blocks_no_overlap EXCLUDE USING gist (
			technician_id WITH =,
			tstzrange(start_at, end_at, '[)') WITH &&
		)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		action TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		meta JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS activity_log_request_idx ON activity_log (request_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS inventory_parts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		quantity_on_hand INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id TEXT PRIMARY KEY,
		part_id TEXT NOT NULL,
		request_id TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity <> 0),
		reason TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (request_id, part_id, reason)
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	err := WithTx(ctx, db, "migration", func(tx *sqlx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("schema migrated", zap.Int("statements", len(schema)))
	return nil
}
