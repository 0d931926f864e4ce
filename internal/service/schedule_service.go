package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
	"github.com/noah-isme/fleet-service-api/pkg/timewindow"
)

// WindowInput is a candidate window as received from a caller. Snap marks
// windows coming from an interactive picker.
type WindowInput struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
	Snap  bool      `json:"snap"`
}

// IntentSink receives side-effect intents after the producing transaction commits.
type IntentSink interface {
	Dispatch(ctx context.Context, intents []models.SideEffectIntent)
}

// ScheduleService is the conflict engine: it decides whether a technician
// can take a window and commits the block in the same critical section.
type ScheduleService struct {
	store   store.Store
	cache   *ScheduleCache
	metrics *MetricsService
	sink    IntentSink
	clock   clock.Clock
	grid    time.Duration
	logger  *zap.Logger
}

// ScheduleServiceOptions carries the optional collaborators.
type ScheduleServiceOptions struct {
	Cache   *ScheduleCache
	Metrics *MetricsService
	Sink    IntentSink
	Clock   clock.Clock
	Grid    time.Duration
	Logger  *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(st store.Store, opts ScheduleServiceOptions) *ScheduleService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Grid <= 0 {
		opts.Grid = timewindow.DefaultGrid
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ScheduleService{
		store:   st,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		sink:    opts.Sink,
		clock:   opts.Clock,
		grid:    opts.Grid,
		logger:  opts.Logger,
	}
}

// PrepareWindow normalises a candidate window to UTC, snaps it when asked
// and rejects windows that do not end after they start.
func (s *ScheduleService) PrepareWindow(in WindowInput) (timewindow.Window, error) {
	w := timewindow.Window{Start: in.Start, End: in.End}.UTC()
	if in.Snap {
		w = w.Snap(s.grid)
	}
	if err := w.Validate(); err != nil {
		return timewindow.Window{}, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, appErrors.ErrInvalidWindow.Message)
	}
	return w, nil
}

// Place books window for the request on the technician inside tx. The
// caller must already hold the request lock. The request's own block is
// ignored when checking overlaps, so re-windowing never conflicts with itself.
func (s *ScheduleService) Place(ctx context.Context, tx store.Tx, requestID, technicianID string, window timewindow.Window) (*models.ScheduleBlock, error) {
	if err := window.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, appErrors.ErrInvalidWindow.Message)
	}

	tech, err := tx.GetTechnician(ctx, technicianID)
	if err != nil {
		return nil, storeError(err, "technician")
	}
	if !tech.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("technician %s is inactive", technicianID))
	}

	if err := tx.LockTechnician(ctx, technicianID); err != nil {
		return nil, storeError(err, "technician")
	}

	existing, err := tx.ListBlocks(ctx, technicianID)
	if err != nil {
		return nil, storeError(err, "schedule blocks")
	}
	if conflicts := overlapping(existing, requestID, window); len(conflicts) > 0 {
		return nil, s.conflict(technicianID, window, conflicts)
	}

	block := &models.ScheduleBlock{
		RequestID:    requestID,
		TechnicianID: technicianID,
		Start:        window.Start,
		End:          window.End,
		CreatedAt:    s.clock.Now(),
	}
	if err := tx.PutBlock(ctx, block); err != nil {
		if errors.Is(err, store.ErrOverlap) {
			return nil, s.conflict(technicianID, window, s.relist(ctx, tx, requestID, technicianID, window))
		}
		return nil, storeError(err, "schedule block")
	}
	return block, nil
}

// relist reloads the colliding blocks after the store itself rejected an
// overlap. A PostgreSQL exclusion violation aborts the transaction, so the
// reload fails there and the conflict carries no blocks.
func (s *ScheduleService) relist(ctx context.Context, tx store.Tx, requestID, technicianID string, window timewindow.Window) []models.ScheduleBlock {
	existing, err := tx.ListBlocks(ctx, technicianID)
	if err != nil {
		s.logger.Debug("conflicting blocks unavailable", zap.String("technician_id", technicianID), zap.Error(err))
		return nil
	}
	return overlapping(existing, requestID, window)
}

func overlapping(blocks []models.ScheduleBlock, requestID string, window timewindow.Window) []models.ScheduleBlock {
	var out []models.ScheduleBlock
	for _, b := range blocks {
		if b.RequestID == requestID {
			continue
		}
		if b.Window().Overlaps(window) {
			out = append(out, b)
		}
	}
	return out
}

func (s *ScheduleService) conflict(technicianID string, window timewindow.Window, conflicts []models.ScheduleBlock) error {
	s.metrics.RecordConflict()
	domainErr := &models.ScheduleConflictError{
		Message:      fmt.Sprintf("technician %s is already booked between %s and %s", technicianID, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339)),
		TechnicianID: technicianID,
		Requested:    window,
		Conflicts:    conflicts,
	}
	appErr := appErrors.Wrap(domainErr, appErrors.ErrSchedulingConflict.Code, appErrors.ErrSchedulingConflict.Status, domainErr.Message)
	appErr.Details = domainErr
	s.logger.Info("schedule conflict",
		zap.String("technician_id", technicianID),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Int("conflicts", len(conflicts)),
	)
	return appErr
}

// ScheduleTechnician re-windows a SCHEDULED or IN_PROGRESS request without
// changing its status. An empty technicianID keeps the current technician.
func (s *ScheduleService) ScheduleTechnician(ctx context.Context, actor models.Actor, requestID, technicianID string, in WindowInput) (*models.ScheduleBlock, error) {
	if actor.Role != models.RoleDispatch && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedActor, fmt.Sprintf("role %q cannot schedule technicians", actor.Role))
	}
	window, err := s.PrepareWindow(in)
	if err != nil {
		return nil, err
	}

	var (
		block    *models.ScheduleBlock
		previous string
		entry    *models.ActivityLogEntry
	)
	started := time.Now()
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return storeError(err, "service request")
		}
		if req.Status != models.StatusScheduled && req.Status != models.StatusInProgress {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request %s is %s; only scheduled or in-progress work can be re-windowed", req.ID, req.Status))
		}
		previous = req.AssignedTechnician()
		target := technicianID
		if target == "" {
			target = previous
		}
		if target == "" {
			return appErrors.Clone(appErrors.ErrValidation, "technician_id is required for an unassigned request")
		}

		block, err = s.Place(ctx, tx, req.ID, target, window)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		req.Assign(target, window)
		req.UpdatedAt = now
		if err := tx.SaveRequest(ctx, req); err != nil {
			return storeError(err, "service request")
		}
		entry = &models.ActivityLogEntry{
			RequestID:  req.ID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "SCHEDULE_TECHNICIAN",
			FromStatus: req.Status,
			ToStatus:   req.Status,
			Meta:       encodeJSON(map[string]interface{}{"technician_id": target, "previous_technician": previous, "window": window}),
			CreatedAt:  now,
		}
		return nil
	})
	s.metrics.ObserveTx("schedule_technician", time.Since(started))
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, previous, block.TechnicianID)
	if s.sink != nil {
		s.sink.Dispatch(ctx, []models.SideEffectIntent{{Kind: models.IntentLogActivity, RequestID: requestID, Activity: entry}})
	}
	s.logger.Info("technician scheduled",
		zap.String("request_id", requestID),
		zap.String("technician_id", block.TechnicianID),
		zap.Time("start", block.Start),
		zap.Time("end", block.End),
	)
	return block, nil
}

// TechnicianSchedule lists the blocks of a technician overlapping [from, to).
// Zero bounds are open.
func (s *ScheduleService) TechnicianSchedule(ctx context.Context, technicianID string, from, to time.Time) ([]models.ScheduleBlock, error) {
	if technicianID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "technician id is required")
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidWindow, "range end must be after start")
	}
	if cached, ok := s.cache.Get(ctx, technicianID, from, to); ok {
		return cached, nil
	}
	blocks, err := s.store.ListBlocksByTechnician(ctx, technicianID, from, to)
	if err != nil {
		return nil, storeError(err, "schedule blocks")
	}
	if blocks == nil {
		blocks = []models.ScheduleBlock{}
	}
	s.cache.Put(ctx, technicianID, from, to, blocks)
	return blocks, nil
}

// RegisterTechnician mirrors a technician from the external roster.
func (s *ScheduleService) RegisterTechnician(ctx context.Context, tech models.Technician) (*models.Technician, error) {
	if tech.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "technician id is required")
	}
	if err := s.store.UpsertTechnician(ctx, &tech); err != nil {
		return nil, storeError(err, "technician")
	}
	if !tech.Active {
		s.cache.Invalidate(ctx, tech.ID)
	}
	return &tech, nil
}
