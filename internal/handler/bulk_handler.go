package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fleet-service-api/internal/service"
	"github.com/noah-isme/fleet-service-api/pkg/response"
)

type bulkService interface {
	ApplyBulk(ctx context.Context, in service.BulkRequest) (*service.BulkResult, error)
}

// BulkHandler serves batch operations.
type BulkHandler struct {
	bulk bulkService
	sink service.IntentSink
}

// NewBulkHandler constructs the handler.
func NewBulkHandler(bulk bulkService, sink service.IntentSink) *BulkHandler {
	return &BulkHandler{bulk: bulk, sink: sink}
}

// Apply godoc
// @Summary Apply one operation to many requests
// @Description Items are applied in order and independently. The response is 200 when at least one item succeeded and 409 when all failed.
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.BulkRequest true "Batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/bulk [post]
func (h *BulkHandler) Apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var body service.BulkRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, bindError(err))
		return
	}
	body.Actor = actor

	result, err := h.bulk.ApplyBulk(c.Request.Context(), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.sink != nil {
		h.sink.Dispatch(c.Request.Context(), result.Intents())
	}
	status := http.StatusOK
	if result.AllFailed() {
		status = http.StatusConflict
	}
	response.JSON(c, status, result, map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}
