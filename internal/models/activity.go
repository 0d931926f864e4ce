package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ActivityLogEntry is an append-only audit record of a lifecycle action.
type ActivityLogEntry struct {
	ID         string         `db:"id" json:"id"`
	RequestID  string         `db:"request_id" json:"request_id"`
	ActorID    string         `db:"actor_id" json:"actor_id"`
	ActorRole  Role           `db:"actor_role" json:"actor_role"`
	Action     string         `db:"action" json:"action"`
	FromStatus RequestStatus  `db:"from_status" json:"from_status"`
	ToStatus   RequestStatus  `db:"to_status" json:"to_status"`
	Meta       types.JSONText `db:"meta" json:"meta"`
	CreatedAt  time.Time      `db:"created_at" json:"timestamp"`
}

// InventoryMovement is one ledger row; negative quantities consume stock.
type InventoryMovement struct {
	ID        string    `db:"id" json:"id"`
	PartID    string    `db:"part_id" json:"part_id"`
	RequestID string    `db:"request_id" json:"request_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
