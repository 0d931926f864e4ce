package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/core/lifecycle"
	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

// TransitionPayload is the wire form of the action-specific inputs.
type TransitionPayload struct {
	TechnicianID string             `json:"technician_id,omitempty"`
	Window       *WindowInput       `json:"window,omitempty"`
	Reason       string             `json:"reason,omitempty" validate:"max=2000"`
	Note         string             `json:"note,omitempty" validate:"max=4000"`
	Parts        []models.PartUsage `json:"parts,omitempty" validate:"dive"`
	Patch        *OfficePatchInput  `json:"patch,omitempty"`
}

// OfficePatchInput carries the allow-listed office fields. Unknown keys are
// dropped by the JSON decoder.
type OfficePatchInput struct {
	OfficeNotes *string `json:"office_notes,omitempty"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// TransitionRequest asks for one action on one service request.
type TransitionRequest struct {
	RequestID string            `json:"-" validate:"required"`
	Action    string            `json:"action" validate:"required"`
	Actor     models.Actor      `json:"-"`
	Payload   TransitionPayload `json:"payload"`
}

// LifecycleService applies lifecycle transitions. Each call is one store
// transaction: a failure leaves the request and its block untouched.
type LifecycleService struct {
	store     store.Store
	scheduler *ScheduleService
	cache     *ScheduleCache
	metrics   *MetricsService
	clock     clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLifecycleService instantiates LifecycleService.
func NewLifecycleService(st store.Store, scheduler *ScheduleService, cache *ScheduleCache, metrics *MetricsService, clk clock.Clock, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if clk == nil {
		clk = clock.Real()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		store:     st,
		scheduler: scheduler,
		cache:     cache,
		metrics:   metrics,
		clock:     clk,
		validator: validate,
		logger:    logger,
	}
}

// ApplyTransition validates and applies one action, returning the updated
// request and the side-effect intents for the caller to dispatch.
func (s *LifecycleService) ApplyTransition(ctx context.Context, in TransitionRequest) (*models.ServiceRequest, []models.SideEffectIntent, error) {
	action, ok := lifecycle.ParseAction(in.Action)
	label := string(action)
	if !ok {
		label = "UNKNOWN"
	}
	req, intents, err := s.apply(ctx, action, ok, in)
	s.metrics.RecordTransition(label, outcomeOf(err))
	if err != nil {
		s.logger.Debug("transition rejected",
			zap.String("request_id", in.RequestID),
			zap.String("action", in.Action),
			zap.String("actor_id", in.Actor.ID),
			zap.Error(err),
		)
		return nil, nil, err
	}
	return req, intents, nil
}

func (s *LifecycleService) apply(ctx context.Context, action lifecycle.Action, known bool, in TransitionRequest) (*models.ServiceRequest, []models.SideEffectIntent, error) {
	if in.Actor.ID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorizedActor, "actor is required")
	}
	if in.RequestID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "request id is required")
	}
	if !known {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown action %q", in.Action))
	}

	var (
		result  *models.ServiceRequest
		outcome lifecycle.Outcome
		touched []string
	)
	started := time.Now()
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		current, err := tx.GetRequest(ctx, in.RequestID)
		if err != nil {
			return storeError(err, "service request")
		}

		rule, err := lifecycle.Evaluate(action, in.Actor, current)
		if err != nil {
			return denialError(err)
		}
		payload, err := s.buildPayload(in.Payload)
		if err != nil {
			return err
		}
		if err := lifecycle.ValidatePayload(action, payload); err != nil {
			return denialError(err)
		}

		change := lifecycle.Change{Rule: rule, Actor: in.Actor, Payload: payload, Now: s.clock.Now()}
		if rule.Schedules {
			technicianID := payload.TechnicianID
			if technicianID == "" {
				technicianID = current.AssignedTechnician()
			}
			if technicianID == "" {
				return appErrors.Clone(appErrors.ErrValidation, "technician_id is required")
			}
			block, err := s.scheduler.Place(ctx, tx, current.ID, technicianID, *payload.Window)
			if err != nil {
				return err
			}
			change.TechnicianID = block.TechnicianID
			change.Window = block.Window()
		}

		working := current.Clone()
		outcome = lifecycle.Apply(working, change)
		if outcome.Release {
			if err := tx.DeleteBlockByRequest(ctx, current.ID); err != nil {
				return storeError(err, "schedule block")
			}
		}
		if err := tx.SaveRequest(ctx, working); err != nil {
			return storeError(err, "service request")
		}

		result = working
		touched = []string{current.AssignedTechnician(), working.AssignedTechnician()}
		return nil
	})
	s.metrics.ObserveTx("transition", time.Since(started))
	if err != nil {
		return nil, nil, err
	}

	s.cache.Invalidate(ctx, touched...)
	s.logger.Info("transition applied",
		zap.String("request_id", result.ID),
		zap.String("action", string(action)),
		zap.String("actor_id", in.Actor.ID),
		zap.String("actor_role", string(in.Actor.Role)),
		zap.String("from", string(outcome.From)),
		zap.String("to", string(outcome.To)),
		zap.Int("intents", len(outcome.Intents)),
	)
	return result, outcome.Intents, nil
}

func (s *LifecycleService) buildPayload(in TransitionPayload) (lifecycle.Payload, error) {
	if err := s.validator.Struct(in); err != nil {
		return lifecycle.Payload{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	p := lifecycle.Payload{
		TechnicianID: in.TechnicianID,
		Reason:       in.Reason,
		Note:         in.Note,
		Parts:        in.Parts,
	}
	if in.Window != nil {
		w, err := s.scheduler.PrepareWindow(*in.Window)
		if err != nil {
			return lifecycle.Payload{}, err
		}
		p.Window = &w
	}
	if in.Patch != nil {
		patch, err := convertPatch(*in.Patch)
		if err != nil {
			return lifecycle.Payload{}, err
		}
		p.Patch = patch
	}
	return p, nil
}

func convertPatch(in OfficePatchInput) (*lifecycle.OfficePatch, error) {
	patch := &lifecycle.OfficePatch{
		OfficeNotes: in.OfficeNotes,
		Description: in.Description,
	}
	if in.Priority != nil {
		p, ok := models.NormalizePriority(*in.Priority)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", *in.Priority))
		}
		patch.Priority = &p
	}
	if in.Status != nil {
		st, ok := models.NormalizeStatus(*in.Status)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *in.Status))
		}
		patch.Status = &st
	}
	return patch, nil
}
