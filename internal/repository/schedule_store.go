package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/database"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

const requestColumns = `id, status, customer_id, vehicle_id, location_id, description, priority, technician_id,
scheduled_start, scheduled_end, started_at, completed_at, completed_by, office_notes, technician_notes,
created_by, created_at, updated_at`

const blockColumns = `id, request_id, technician_id, start_at, end_at, created_at`

// ScheduleStore is the PostgreSQL store. Requests are locked with
// SELECT ... FOR UPDATE and technicians with a transaction-scoped advisory
// lock; the schedule_blocks exclusion constraint backs the overlap check.
type ScheduleStore struct {
	db *sqlx.DB
}

// NewScheduleStore constructs the store.
func NewScheduleStore(db *sqlx.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

var _ store.Store = (*ScheduleStore)(nil)

// WithinTx implements store.Store.
func (s *ScheduleStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return database.WithTx(ctx, s.db, "schedule tx", func(tx *sqlx.Tx) error {
		return fn(ctx, &scheduleTx{tx: tx})
	})
}

// CreateRequest inserts a new service request.
func (s *ScheduleStore) CreateRequest(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}

	const query = `INSERT INTO service_requests (` + requestColumns + `)
VALUES (:id, :status, :customer_id, :vehicle_id, :location_id, :description, :priority, :technician_id,
:scheduled_start, :scheduled_end, :started_at, :completed_at, :completed_by, :office_notes, :technician_notes,
:created_by, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, req); err != nil {
		if hasPQCode(err, pqUniqueViolation) {
			return fmt.Errorf("insert service request %s: %w", req.ID, store.ErrDuplicate)
		}
		return fmt.Errorf("insert service request: %w", err)
	}
	return nil
}

// GetRequest loads a committed request without locking it.
func (s *ScheduleStore) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "get service request")
	}
	return &req, nil
}

// UpsertTechnician mirrors a technician from the external roster.
func (s *ScheduleStore) UpsertTechnician(ctx context.Context, tech *models.Technician) error {
	if tech.CreatedAt.IsZero() {
		tech.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO technicians (id, name, active, created_at) VALUES (:id, :name, :active, :created_at)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active`
	if _, err := s.db.NamedExecContext(ctx, query, tech); err != nil {
		return fmt.Errorf("upsert technician: %w", err)
	}
	return nil
}

// ListBlocksByTechnician implements store.Store.
func (s *ScheduleStore) ListBlocksByTechnician(ctx context.Context, technicianID string, from, to time.Time) ([]models.ScheduleBlock, error) {
	conditions := []string{"technician_id = $1"}
	args := []interface{}{technicianID}
	if !from.IsZero() {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("end_at > $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("start_at < $%d", len(args)))
	}
	query := `SELECT ` + blockColumns + ` FROM schedule_blocks WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY start_at, request_id`

	var blocks []models.ScheduleBlock
	if err := s.db.SelectContext(ctx, &blocks, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule blocks: %w", err)
	}
	return blocks, nil
}

type scheduleTx struct {
	tx *sqlx.Tx
}

func (t *scheduleTx) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := t.tx.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, notFound(err, "lock service request")
	}
	return &req, nil
}

func (t *scheduleTx) SaveRequest(ctx context.Context, req *models.ServiceRequest) error {
	const query = `UPDATE service_requests SET status = :status, description = :description, priority = :priority,
technician_id = :technician_id, scheduled_start = :scheduled_start, scheduled_end = :scheduled_end,
started_at = :started_at, completed_at = :completed_at, completed_by = :completed_by,
office_notes = :office_notes, technician_notes = :technician_notes, updated_at = :updated_at WHERE id = :id`
	result, err := t.tx.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update service request: %w", err)
	}
	return expectAffected(result, "update service request")
}

func (t *scheduleTx) DeleteRequest(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM schedule_blocks WHERE request_id = $1`, id); err != nil {
		return fmt.Errorf("delete request blocks: %w", err)
	}
	result, err := t.tx.ExecContext(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service request: %w", err)
	}
	return expectAffected(result, "delete service request")
}

func (t *scheduleTx) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	var tech models.Technician
	if err := t.tx.GetContext(ctx, &tech, `SELECT id, name, active, created_at FROM technicians WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "get technician")
	}
	return &tech, nil
}

func (t *scheduleTx) LockTechnician(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "technician:"+id); err != nil {
		return fmt.Errorf("lock technician %s: %w", id, err)
	}
	return nil
}

func (t *scheduleTx) ListBlocks(ctx context.Context, technicianID string) ([]models.ScheduleBlock, error) {
	var blocks []models.ScheduleBlock
	query := `SELECT ` + blockColumns + ` FROM schedule_blocks WHERE technician_id = $1 ORDER BY start_at, request_id`
	if err := t.tx.SelectContext(ctx, &blocks, query, technicianID); err != nil {
		return nil, fmt.Errorf("list technician blocks: %w", err)
	}
	return blocks, nil
}

func (t *scheduleTx) GetBlockByRequest(ctx context.Context, requestID string) (*models.ScheduleBlock, error) {
	var block models.ScheduleBlock
	if err := t.tx.GetContext(ctx, &block, `SELECT `+blockColumns+` FROM schedule_blocks WHERE request_id = $1`, requestID); err != nil {
		return nil, notFound(err, "get request block")
	}
	return &block, nil
}

func (t *scheduleTx) PutBlock(ctx context.Context, block *models.ScheduleBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}
	if err := t.DeleteBlockByRequest(ctx, block.RequestID); err != nil {
		return err
	}
	const query = `INSERT INTO schedule_blocks (` + blockColumns + `) VALUES (:id, :request_id, :technician_id, :start_at, :end_at, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, block); err != nil {
		if hasPQCode(err, pqExclusionViolation) {
			return fmt.Errorf("insert schedule block: %w", store.ErrOverlap)
		}
		return fmt.Errorf("insert schedule block: %w", err)
	}
	return nil
}

func (t *scheduleTx) DeleteBlockByRequest(ctx context.Context, requestID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM schedule_blocks WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("delete schedule block: %w", err)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
