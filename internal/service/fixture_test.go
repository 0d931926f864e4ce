package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

var (
	day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	dispatchActor = models.Actor{ID: "disp-1", Role: models.RoleDispatch}
	officeActor   = models.Actor{ID: "office-1", Role: models.RoleOffice}
	adminActor    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	customerActor = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	t1Actor       = models.Actor{ID: "T1", Role: models.RoleTechnician}
	t2Actor       = models.Actor{ID: "T2", Role: models.RoleTechnician}
)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func window(startH, startM, endH, endM int) *WindowInput {
	return &WindowInput{Start: at(startH, startM), End: at(endH, endM)}
}

type recordingSink struct {
	mu      sync.Mutex
	intents []models.SideEffectIntent
}

func (s *recordingSink) Dispatch(_ context.Context, intents []models.SideEffectIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, intents...)
}

func (s *recordingSink) kinds() []models.IntentKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.IntentKind, 0, len(s.intents))
	for _, i := range s.intents {
		out = append(out, i.Kind)
	}
	return out
}

type fixture struct {
	store     *store.MemoryStore
	clock     *clock.Fake
	sink      *recordingSink
	metrics   *MetricsService
	scheduler *ScheduleService
	lifecycle *LifecycleService
	requests  *RequestService
	bulk      *BulkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.NewMemoryStore(),
		clock:   clock.NewFake(at(8, 0)),
		sink:    &recordingSink{},
		metrics: NewMetricsService(),
	}
	f.scheduler = NewScheduleService(f.store, ScheduleServiceOptions{Metrics: f.metrics, Sink: f.sink, Clock: f.clock})
	f.lifecycle = NewLifecycleService(f.store, f.scheduler, nil, f.metrics, f.clock, nil, nil)
	f.requests = NewRequestService(f.store, f.sink, f.clock, nil, nil)
	f.bulk = NewBulkService(f.lifecycle, f.metrics, nil, nil)

	ctx := context.Background()
	for _, id := range []string{"T1", "T2"} {
		_, err := f.scheduler.RegisterTechnician(ctx, models.Technician{ID: id, Name: id, Active: true})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) newRequest(t *testing.T, id string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.store.CreateRequest(context.Background(), &models.ServiceRequest{
		ID:         id,
		Status:     models.StatusNew,
		CustomerID: "cust-1",
		VehicleID:  "veh-1",
		LocationID: "loc-1",
		Priority:   models.PriorityMedium,
		CreatedBy:  "cust-1",
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func (f *fixture) apply(actor models.Actor, requestID, action string, payload TransitionPayload) (*models.ServiceRequest, []models.SideEffectIntent, error) {
	return f.lifecycle.ApplyTransition(context.Background(), TransitionRequest{
		RequestID: requestID,
		Action:    action,
		Actor:     actor,
		Payload:   payload,
	})
}

func (f *fixture) mustApply(t *testing.T, actor models.Actor, requestID, action string, payload TransitionPayload) *models.ServiceRequest {
	t.Helper()
	req, _, err := f.apply(actor, requestID, action, payload)
	require.NoError(t, err)
	return req
}

func (f *fixture) blocks(t *testing.T, technicianID string) []models.ScheduleBlock {
	t.Helper()
	blocks, err := f.store.ListBlocksByTechnician(context.Background(), technicianID, time.Time{}, time.Time{})
	require.NoError(t, err)
	return blocks
}

func (f *fixture) get(t *testing.T, id string) *models.ServiceRequest {
	t.Helper()
	req, err := f.store.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req
}

func requireCode(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, target), "expected %s, got %v", target.Code, err)
}
