package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/service"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
	"github.com/noah-isme/fleet-service-api/pkg/export"
	"github.com/noah-isme/fleet-service-api/pkg/response"
)

type scheduleReader interface {
	TechnicianSchedule(ctx context.Context, technicianID string, from, to time.Time) ([]models.ScheduleBlock, error)
	RegisterTechnician(ctx context.Context, tech models.Technician) (*models.Technician, error)
}

type scheduleExporter interface {
	ExportSchedule(ctx context.Context, technicianID string, from, to time.Time, format export.Format) (*service.ExportFile, error)
}

// TechnicianHandler serves technician roster and schedule endpoints.
type TechnicianHandler struct {
	schedules scheduleReader
	exporter  scheduleExporter
}

// NewTechnicianHandler constructs the handler.
func NewTechnicianHandler(schedules scheduleReader, exporter scheduleExporter) *TechnicianHandler {
	return &TechnicianHandler{schedules: schedules, exporter: exporter}
}

// TechnicianBody mirrors a roster entry.
type TechnicianBody struct {
	Name   string `json:"name" binding:"required"`
	Active *bool  `json:"active"`
}

// Schedule godoc
// @Summary List a technician's booked blocks
// @Tags Technicians
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Technician ID"
// @Param from query string false "Range start (RFC 3339)"
// @Param to query string false "Range end (RFC 3339)"
// @Param format query string false "json (default), csv or xlsx"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /technicians/{id}/schedule [get]
func (h *TechnicianHandler) Schedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	technicianID := c.Param("id")
	if actor.Role == models.RoleTechnician && actor.ID != technicianID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "technicians can only view their own schedule"))
		return
	}
	from, err := queryTime(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}

	if raw := c.Query("format"); raw != "" && raw != "json" {
		format, err := export.ParseFormat(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
			return
		}
		file, err := h.exporter.ExportSchedule(c.Request.Context(), technicianID, from, to, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Data(http.StatusOK, file.ContentType, file.Body)
		return
	}

	blocks, err := h.schedules.TechnicianSchedule(c.Request.Context(), technicianID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, map[string]interface{}{"count": len(blocks)})
}

// Upsert godoc
// @Summary Mirror a technician from the roster
// @Tags Technicians
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param payload body TechnicianBody true "Technician"
// @Success 200 {object} response.Envelope
// @Router /technicians/{id} [put]
func (h *TechnicianHandler) Upsert(c *gin.Context) {
	var body TechnicianBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, bindError(err))
		return
	}
	active := true
	if body.Active != nil {
		active = *body.Active
	}
	tech, err := h.schedules.RegisterTechnician(c.Request.Context(), models.Technician{
		ID:     c.Param("id"),
		Name:   body.Name,
		Active: active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tech)
}
