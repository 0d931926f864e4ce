package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

// RequestService handles intake, lookup and withdrawal of service requests.
type RequestService struct {
	store     store.Store
	sink      IntentSink
	clock     clock.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService instantiates RequestService.
func NewRequestService(st store.Store, sink IntentSink, clk clock.Clock, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if clk == nil {
		clk = clock.Real()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{store: st, sink: sink, clock: clk, validator: validate, logger: logger}
}

// Create registers a NEW request. Customers file requests for themselves.
func (s *RequestService) Create(ctx context.Context, actor models.Actor, payload models.CreateServiceRequest) (*models.ServiceRequest, error) {
	switch actor.Role {
	case models.RoleCustomer:
		if payload.CustomerID == "" {
			payload.CustomerID = actor.ID
		}
		if payload.CustomerID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrUnauthorizedActor, "customers can only file their own requests")
		}
	case models.RoleOffice, models.RoleDispatch, models.RoleAdmin:
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedActor, fmt.Sprintf("role %q cannot create requests", actor.Role))
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service request payload")
	}

	priority := models.PriorityMedium
	if payload.Priority != "" {
		p, ok := models.NormalizePriority(payload.Priority)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", payload.Priority))
		}
		priority = p
	}

	now := s.clock.Now()
	req := &models.ServiceRequest{
		ID:          uuid.NewString(),
		Status:      models.StatusNew,
		CustomerID:  payload.CustomerID,
		VehicleID:   payload.VehicleID,
		LocationID:  payload.LocationID,
		Description: strings.TrimSpace(payload.Description),
		Priority:    priority,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, storeError(err, "service request")
	}

	s.emit(ctx, actor, req, "CREATE", map[string]interface{}{"priority": req.Priority})
	s.logger.Info("service request created",
		zap.String("request_id", req.ID),
		zap.String("customer_id", req.CustomerID),
		zap.String("actor_id", actor.ID),
	)
	return req, nil
}

// Get returns a request. Customers only see their own.
func (s *RequestService) Get(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, storeError(err, "service request")
	}
	if actor.Role == models.RoleCustomer && req.CustomerID != actor.ID && req.CreatedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
	}
	return req, nil
}

// Delete withdraws a request that has not been picked up yet. Only the
// creator or an admin may do so.
func (s *RequestService) Delete(ctx context.Context, actor models.Actor, id string) error {
	var removed *models.ServiceRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return storeError(err, "service request")
		}
		if actor.Role != models.RoleAdmin && req.CreatedBy != actor.ID {
			return appErrors.Clone(appErrors.ErrUnauthorizedActor, "only the creator or an admin can delete a request")
		}
		if req.Status != models.StatusNew {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request %s is %s; only NEW requests can be deleted", req.ID, req.Status))
		}
		if err := tx.DeleteRequest(ctx, req.ID); err != nil {
			return storeError(err, "service request")
		}
		removed = req
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(ctx, actor, removed, "DELETE", nil)
	s.logger.Info("service request deleted", zap.String("request_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (s *RequestService) emit(ctx context.Context, actor models.Actor, req *models.ServiceRequest, action string, meta map[string]interface{}) {
	if s.sink == nil {
		return
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	entry := &models.ActivityLogEntry{
		RequestID:  req.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		FromStatus: req.Status,
		ToStatus:   req.Status,
		Meta:       encodeJSON(meta),
		CreatedAt:  s.clock.Now(),
	}
	s.sink.Dispatch(ctx, []models.SideEffectIntent{{Kind: models.IntentLogActivity, RequestID: req.ID, Activity: entry}})
}
