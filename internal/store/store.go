// Package store defines the persistence boundary of the scheduling core.
//
// All mutations happen inside WithinTx. A Tx locks the request it reads with
// GetRequest and the technician passed to LockTechnician until the
// transaction ends. Callers lock the request first and the technician second.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/fleet-service-api/internal/models"
)

var (
	// ErrNotFound is returned when a request, technician or block does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrOverlap is returned when the backend itself rejects an overlapping block.
	ErrOverlap = errors.New("store: overlapping schedule block")
	// ErrDuplicate is returned when creating a record whose id already exists.
	ErrDuplicate = errors.New("store: duplicate id")
)

// Tx is the transactional view handed to WithinTx callbacks.
type Tx interface {
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	SaveRequest(ctx context.Context, req *models.ServiceRequest) error
	DeleteRequest(ctx context.Context, id string) error

	GetTechnician(ctx context.Context, id string) (*models.Technician, error)
	LockTechnician(ctx context.Context, id string) error

	ListBlocks(ctx context.Context, technicianID string) ([]models.ScheduleBlock, error)
	GetBlockByRequest(ctx context.Context, requestID string) (*models.ScheduleBlock, error)
	// PutBlock stores block and removes any prior block of the same request.
	PutBlock(ctx context.Context, block *models.ScheduleBlock) error
	// DeleteBlockByRequest removes the request's block; a missing block is not an error.
	DeleteBlockByRequest(ctx context.Context, requestID string) error
}

// Store is implemented by the PostgreSQL repository and the in-memory store.
type Store interface {
	// WithinTx runs fn in one transaction. Any error from fn discards every
	// write made through tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateRequest(ctx context.Context, req *models.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	UpsertTechnician(ctx context.Context, tech *models.Technician) error
	// ListBlocksByTechnician returns committed blocks overlapping [from, to),
	// ordered by start. Zero bounds are open.
	ListBlocksByTechnician(ctx context.Context, technicianID string, from, to time.Time) ([]models.ScheduleBlock, error)
}
