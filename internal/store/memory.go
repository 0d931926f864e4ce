package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/pkg/keylock"
	"github.com/noah-isme/fleet-service-api/pkg/timewindow"
)

// MemoryStore keeps everything in process. Request and technician locks are
// keyed mutexes held for the whole transaction, and writes are staged until
// commit, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu          sync.RWMutex
	requests    map[string]*models.ServiceRequest
	blocks      map[string]*models.ScheduleBlock // by request id
	technicians map[string]*models.Technician

	locks *keylock.Locker
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:    make(map[string]*models.ServiceRequest),
		blocks:      make(map[string]*models.ScheduleBlock),
		technicians: make(map[string]*models.Technician),
		locks:       keylock.New(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx implements Store.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{
		store:    s,
		held:     make(map[string]func()),
		requests: make(map[string]*models.ServiceRequest),
		blocks:   make(map[string]*models.ScheduleBlock),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// CreateRequest implements Store.
func (s *MemoryStore) CreateRequest(_ context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("create request %s: %w", req.ID, ErrDuplicate)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

// GetRequest implements Store.
func (s *MemoryStore) GetRequest(_ context.Context, id string) (*models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}

// UpsertTechnician implements Store.
func (s *MemoryStore) UpsertTechnician(_ context.Context, tech *models.Technician) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tech
	if existing, ok := s.technicians[tech.ID]; ok && copied.CreatedAt.IsZero() {
		copied.CreatedAt = existing.CreatedAt
	}
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = s.now()
	}
	s.technicians[tech.ID] = &copied
	return nil
}

// ListBlocksByTechnician implements Store.
func (s *MemoryStore) ListBlocksByTechnician(_ context.Context, technicianID string, from, to time.Time) ([]models.ScheduleBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScheduleBlock
	for _, b := range s.blocks {
		if b.TechnicianID != technicianID {
			continue
		}
		if !from.IsZero() && !b.End.After(from) {
			continue
		}
		if !to.IsZero() && !b.Start.Before(to) {
			continue
		}
		out = append(out, *b)
	}
	sortBlocks(out)
	return out, nil
}

func sortBlocks(blocks []models.ScheduleBlock) {
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Start.Equal(blocks[j].Start) {
			return blocks[i].RequestID < blocks[j].RequestID
		}
		return blocks[i].Start.Before(blocks[j].Start)
	})
}

type memoryTx struct {
	store *MemoryStore
	held  map[string]func()

	// staged writes; a nil value marks a delete
	requests map[string]*models.ServiceRequest
	blocks   map[string]*models.ScheduleBlock
}

func (tx *memoryTx) lock(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	tx.held[key] = tx.store.locks.Lock(key)
}

func (tx *memoryTx) release() {
	for key, unlock := range tx.held {
		unlock()
		delete(tx.held, key)
	}
}

func (tx *memoryTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, req := range tx.requests {
		if req == nil {
			delete(s.requests, id)
			continue
		}
		s.requests[id] = req
	}
	for requestID, block := range tx.blocks {
		if block == nil {
			delete(s.blocks, requestID)
			continue
		}
		s.blocks[requestID] = block
	}
}

func (tx *memoryTx) GetRequest(_ context.Context, id string) (*models.ServiceRequest, error) {
	tx.lock("req:" + id)
	if staged, ok := tx.requests[id]; ok {
		if staged == nil {
			return nil, ErrNotFound
		}
		return staged.Clone(), nil
	}
	return tx.store.GetRequest(context.Background(), id)
}

func (tx *memoryTx) SaveRequest(_ context.Context, req *models.ServiceRequest) error {
	if _, err := tx.GetRequest(context.Background(), req.ID); err != nil {
		return fmt.Errorf("save request %s: %w", req.ID, err)
	}
	tx.requests[req.ID] = req.Clone()
	return nil
}

func (tx *memoryTx) DeleteRequest(_ context.Context, id string) error {
	if _, err := tx.GetRequest(context.Background(), id); err != nil {
		return fmt.Errorf("delete request %s: %w", id, err)
	}
	tx.requests[id] = nil
	tx.blocks[id] = nil
	return nil
}

func (tx *memoryTx) GetTechnician(_ context.Context, id string) (*models.Technician, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	tech, ok := tx.store.technicians[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *tech
	return &copied, nil
}

func (tx *memoryTx) LockTechnician(_ context.Context, id string) error {
	tx.lock("tech:" + id)
	return nil
}

func (tx *memoryTx) ListBlocks(_ context.Context, technicianID string) ([]models.ScheduleBlock, error) {
	merged := make(map[string]models.ScheduleBlock)

	tx.store.mu.RLock()
	for requestID, b := range tx.store.blocks {
		merged[requestID] = *b
	}
	tx.store.mu.RUnlock()

	for requestID, staged := range tx.blocks {
		if staged == nil {
			delete(merged, requestID)
			continue
		}
		merged[requestID] = *staged
	}

	var out []models.ScheduleBlock
	for _, b := range merged {
		if b.TechnicianID == technicianID {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func (tx *memoryTx) GetBlockByRequest(_ context.Context, requestID string) (*models.ScheduleBlock, error) {
	if staged, ok := tx.blocks[requestID]; ok {
		if staged == nil {
			return nil, ErrNotFound
		}
		copied := *staged
		return &copied, nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	b, ok := tx.store.blocks[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (tx *memoryTx) PutBlock(ctx context.Context, block *models.ScheduleBlock) error {
	if err := (timewindow.Window{Start: block.Start, End: block.End}).Validate(); err != nil {
		return fmt.Errorf("put block for %s: %w", block.RequestID, err)
	}
	existing, err := tx.ListBlocks(ctx, block.TechnicianID)
	if err != nil {
		return err
	}
	for _, b := range existing {
		if b.RequestID != block.RequestID && b.Window().Overlaps(block.Window()) {
			return fmt.Errorf("put block for %s: %w", block.RequestID, ErrOverlap)
		}
	}
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = tx.store.now()
	}
	copied := *block
	tx.blocks[block.RequestID] = &copied
	return nil
}

func (tx *memoryTx) DeleteBlockByRequest(_ context.Context, requestID string) error {
	tx.blocks[requestID] = nil
	return nil
}
