package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/core/lifecycle"
	"github.com/noah-isme/fleet-service-api/internal/models"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

// BulkOperation names an operation applied across a batch.
type BulkOperation string

const (
	BulkAssign     BulkOperation = "assign"
	BulkUnassign   BulkOperation = "unassign"
	BulkReschedule BulkOperation = "reschedule"
	BulkStatus     BulkOperation = "status"
)

// MaxBulkItems caps the size of one batch.
const MaxBulkItems = 200

// BulkParams are shared by every item of a batch.
type BulkParams struct {
	TechnicianID string       `json:"technician_id,omitempty"`
	Window       *WindowInput `json:"window,omitempty"`
	Status       string       `json:"status,omitempty"`
}

// BulkRequest describes one batch.
type BulkRequest struct {
	Operation  string       `json:"operation" validate:"required,oneof=assign unassign reschedule status"`
	RequestIDs []string     `json:"request_ids" validate:"required,min=1,max=200,dive,required"`
	Params     BulkParams   `json:"params"`
	Actor      models.Actor `json:"-"`
}

// ItemResult is the outcome for one request id.
type ItemResult struct {
	RequestID string                    `json:"request_id"`
	Request   *models.ServiceRequest    `json:"request,omitempty"`
	Intents   []models.SideEffectIntent `json:"-"`
	Error     *appErrors.Error          `json:"error,omitempty"`
}

// OK reports whether the item succeeded.
func (r ItemResult) OK() bool { return r.Error == nil }

// BulkResult lists the per-item outcomes in input order.
type BulkResult struct {
	Operation BulkOperation `json:"operation"`
	Items     []ItemResult  `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// AllFailed reports whether no item succeeded.
func (r *BulkResult) AllFailed() bool {
	return len(r.Items) > 0 && r.Succeeded == 0
}

// Intents flattens the intents of the successful items in input order.
func (r *BulkResult) Intents() []models.SideEffectIntent {
	var out []models.SideEffectIntent
	for _, item := range r.Items {
		out = append(out, item.Intents...)
	}
	return out
}

// BulkService runs one lifecycle operation per request id. Items are applied
// sequentially in caller order; each is atomic, the batch is not.
type BulkService struct {
	lifecycle *LifecycleService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBulkService instantiates BulkService.
func NewBulkService(lc *LifecycleService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BulkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{lifecycle: lc, metrics: metrics, validator: validate, logger: logger}
}

// ApplyBulk applies the batch. Only a malformed batch returns an error; item
// failures are recorded in the result.
func (s *BulkService) ApplyBulk(ctx context.Context, in BulkRequest) (*BulkResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk request")
	}
	op := BulkOperation(in.Operation)
	action, payload, err := bulkTransition(op, in.Params)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Operation: op, Items: make([]ItemResult, 0, len(in.RequestIDs))}
	seen := make(map[string]struct{}, len(in.RequestIDs))
	for _, id := range in.RequestIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		item := ItemResult{RequestID: id}
		if err := ctx.Err(); err != nil {
			item.Error = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch cancelled")
		} else {
			req, intents, err := s.lifecycle.ApplyTransition(ctx, TransitionRequest{
				RequestID: id,
				Action:    string(action),
				Actor:     in.Actor,
				Payload:   payload,
			})
			item.Request, item.Intents = req, intents
			item.Error = appErrors.FromError(err)
		}

		if item.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
		s.metrics.RecordBulkItem(string(op), item.OK())
		result.Items = append(result.Items, item)
	}

	s.logger.Info("bulk operation applied",
		zap.String("operation", string(op)),
		zap.String("actor_id", in.Actor.ID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func bulkTransition(op BulkOperation, params BulkParams) (lifecycle.Action, TransitionPayload, error) {
	switch op {
	case BulkAssign:
		return lifecycle.ActionSchedule, TransitionPayload{TechnicianID: params.TechnicianID, Window: params.Window}, nil
	case BulkReschedule:
		return lifecycle.ActionReschedule, TransitionPayload{TechnicianID: params.TechnicianID, Window: params.Window}, nil
	case BulkUnassign:
		return lifecycle.ActionUnassign, TransitionPayload{}, nil
	case BulkStatus:
		if params.Status == "" {
			return "", TransitionPayload{}, appErrors.Clone(appErrors.ErrValidation, "params.status is required")
		}
		status := params.Status
		return lifecycle.ActionOfficePatch, TransitionPayload{Patch: &OfficePatchInput{Status: &status}}, nil
	}
	return "", TransitionPayload{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown bulk operation %q", op))
}
