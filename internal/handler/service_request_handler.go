package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/service"
	"github.com/noah-isme/fleet-service-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, actor models.Actor, payload models.CreateServiceRequest) (*models.ServiceRequest, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type transitionService interface {
	ApplyTransition(ctx context.Context, in service.TransitionRequest) (*models.ServiceRequest, []models.SideEffectIntent, error)
}

type technicianScheduler interface {
	ScheduleTechnician(ctx context.Context, actor models.Actor, requestID, technicianID string, in service.WindowInput) (*models.ScheduleBlock, error)
}

// ServiceRequestHandler serves the service request endpoints.
type ServiceRequestHandler struct {
	requests  requestService
	lifecycle transitionService
	scheduler technicianScheduler
	sink      service.IntentSink
}

// NewServiceRequestHandler constructs the handler. Intents returned by
// transitions are handed to sink after the response data is ready.
func NewServiceRequestHandler(requests requestService, lifecycle transitionService, scheduler technicianScheduler, sink service.IntentSink) *ServiceRequestHandler {
	return &ServiceRequestHandler{requests: requests, lifecycle: lifecycle, scheduler: scheduler, sink: sink}
}

// TransitionBody is the body of a transition call.
type TransitionBody struct {
	Action  string                    `json:"action" binding:"required"`
	Payload service.TransitionPayload `json:"payload"`
}

// TransitionResponse echoes the updated request and the emitted intents.
type TransitionResponse struct {
	Request *models.ServiceRequest    `json:"request"`
	Intents []models.SideEffectIntent `json:"intents"`
}

// ScheduleBody re-windows a request.
type ScheduleBody struct {
	TechnicianID string              `json:"technician_id"`
	Window       service.WindowInput `json:"window"`
}

// Create godoc
// @Summary Create a service request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body models.CreateServiceRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests [post]
func (h *ServiceRequestHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var payload models.CreateServiceRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err))
		return
	}
	req, err := h.requests.Create(c.Request.Context(), actor, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// Get godoc
// @Summary Get a service request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *ServiceRequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, err := h.requests.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req)
}

// Delete godoc
// @Summary Delete a NEW service request
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id} [delete]
func (h *ServiceRequestHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.requests.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transition godoc
// @Summary Apply a lifecycle action
// @Description Actions: SCHEDULE, RESCHEDULE, UNASSIGN, START, COMPLETE, REPORT_ISSUE, UPDATE_NOTES, OFFICE_PATCH.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body TransitionBody true "Action and payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/transitions [post]
func (h *ServiceRequestHandler) Transition(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var body TransitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, bindError(err))
		return
	}
	req, intents, err := h.lifecycle.ApplyTransition(c.Request.Context(), service.TransitionRequest{
		RequestID: c.Param("id"),
		Action:    body.Action,
		Actor:     actor,
		Payload:   body.Payload,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.sink != nil {
		h.sink.Dispatch(c.Request.Context(), intents)
	}
	response.JSON(c, http.StatusOK, TransitionResponse{Request: req, Intents: intents})
}

// Schedule godoc
// @Summary Re-window a scheduled or in-progress request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body ScheduleBody true "Technician and window"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/schedule [put]
func (h *ServiceRequestHandler) Schedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var body ScheduleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, bindError(err))
		return
	}
	block, err := h.scheduler.ScheduleTechnician(c.Request.Context(), actor, c.Param("id"), body.TechnicianID, body.Window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, block)
}
