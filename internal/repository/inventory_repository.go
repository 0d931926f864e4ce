package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/database"
)

// MovementServiceUsage marks stock consumed by a completed service request.
const MovementServiceUsage = "SERVICE_USAGE"

// InventoryRepository keeps part stock and its movement ledger.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs the repository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Consume records the parts used by a request and lowers stock. A part
// already recorded for the request is skipped, so replays are harmless.
// Repeated lines for one part are summed into a single movement.
func (r *InventoryRepository) Consume(ctx context.Context, requestID, actorID string, parts []models.PartUsage) error {
	parts = models.MergeParts(parts)
	if len(parts) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, "inventory consume", func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for _, part := range parts {
			movement := models.InventoryMovement{
				ID:        uuid.NewString(),
				PartID:    part.PartID,
				RequestID: requestID,
				Quantity:  -part.Quantity,
				Reason:    MovementServiceUsage,
				CreatedBy: actorID,
				CreatedAt: now,
			}
			const insertMovement = `INSERT INTO inventory_movements (id, part_id, request_id, quantity, reason, created_by, created_at)
VALUES (:id, :part_id, :request_id, :quantity, :reason, :created_by, :created_at)
ON CONFLICT (request_id, part_id, reason) DO NOTHING`
			result, err := tx.NamedExecContext(ctx, insertMovement, &movement)
			if err != nil {
				return fmt.Errorf("insert inventory movement: %w", err)
			}
			inserted, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("inventory movement rows affected: %w", err)
			}
			if inserted == 0 {
				continue
			}

			const decrement = `UPDATE inventory_parts SET quantity_on_hand = quantity_on_hand - $1, updated_at = $2 WHERE id = $3`
			result, err = tx.ExecContext(ctx, decrement, part.Quantity, now, part.PartID)
			if err != nil {
				return fmt.Errorf("decrement part %s: %w", part.PartID, err)
			}
			if err := expectAffected(result, "decrement part "+part.PartID); err != nil {
				if err == store.ErrNotFound {
					return fmt.Errorf("part %s: %w", part.PartID, store.ErrNotFound)
				}
				return err
			}
		}
		return nil
	})
}
