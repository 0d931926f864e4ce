package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/fleet-service-api/internal/models"
)

// MemoryLedger keeps the activity log and the inventory movements in process
// for the memory driver. Consume is idempotent per request and part.
type MemoryLedger struct {
	mu        sync.Mutex
	activity  []models.ActivityLogEntry
	movements map[string]models.InventoryMovement
	stock     map[string]int
	now       func() time.Time
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		movements: map[string]models.InventoryMovement{},
		stock:     map[string]int{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Append records an activity entry. Entries with a known id are ignored.
func (l *MemoryLedger) Append(_ context.Context, entry *models.ActivityLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	for _, existing := range l.activity {
		if existing.ID == entry.ID {
			return nil
		}
	}
	l.activity = append(l.activity, *entry)
	return nil
}

// ListByRequest returns the entries of a request in append order.
func (l *MemoryLedger) ListByRequest(_ context.Context, requestID string) ([]models.ActivityLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.ActivityLogEntry{}
	for _, e := range l.activity {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

// SetStock seeds the on-hand quantity of a part.
func (l *MemoryLedger) SetStock(partID string, quantity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[partID] = quantity
}

// Stock returns the on-hand quantity of a part.
func (l *MemoryLedger) Stock(partID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[partID]
}

// Consume decrements stock for parts not yet consumed by requestID. Repeated
// lines for one part are summed first.
func (l *MemoryLedger) Consume(_ context.Context, requestID, actorID string, parts []models.PartUsage) error {
	parts = models.MergeParts(parts)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range parts {
		if _, ok := l.stock[p.PartID]; !ok {
			return ErrNotFound
		}
	}
	for _, p := range parts {
		key := requestID + "/" + p.PartID
		if _, done := l.movements[key]; done {
			continue
		}
		l.movements[key] = models.InventoryMovement{
			ID:        uuid.NewString(),
			PartID:    p.PartID,
			RequestID: requestID,
			Quantity:  -p.Quantity,
			Reason:    "SERVICE_USAGE",
			CreatedBy: actorID,
			CreatedAt: l.now(),
		}
		l.stock[p.PartID] -= p.Quantity
	}
	return nil
}
