package lifecycle

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/pkg/timewindow"
)

// Payload carries the action-specific inputs of a transition.
type Payload struct {
	TechnicianID string
	Window       *timewindow.Window
	Reason       string
	Note         string
	Parts        []models.PartUsage
	Patch        *OfficePatch
}

// OfficePatch is the allow-listed field set an office user may change.
type OfficePatch struct {
	OfficeNotes *string
	Description *string
	Priority    *models.Priority
	Status      *models.RequestStatus
}

// Empty reports whether the patch changes nothing.
func (p *OfficePatch) Empty() bool {
	return p.OfficeNotes == nil && p.Description == nil && p.Priority == nil && p.Status == nil
}

// Change is the pure input to Apply. Placement must already have succeeded
// for scheduling actions; TechnicianID and Window describe the committed block.
type Change struct {
	Rule         Rule
	Actor        models.Actor
	Payload      Payload
	Now          time.Time
	TechnicianID string
	Window       timewindow.Window
}

// Outcome is what Apply did to the request.
type Outcome struct {
	From    models.RequestStatus
	To      models.RequestStatus
	Release bool
	Intents []models.SideEffectIntent
}

// Apply mutates req according to the change and returns the side-effect
// intents in execution order: activity first, then inventory, then messages.
// req must be a working copy; callers discard it if persisting fails.
func Apply(req *models.ServiceRequest, c Change) Outcome {
	out := Outcome{From: req.Status}
	hadTechnician := req.AssignedTechnician() != ""
	meta := map[string]interface{}{}

	switch c.Rule.Action {
	case ActionSchedule, ActionReschedule:
		if prev, ok := req.ScheduledWindow(); ok {
			meta["previous_window"] = prev
			meta["previous_technician"] = req.AssignedTechnician()
		}
		req.Assign(c.TechnicianID, c.Window)
		meta["technician_id"] = c.TechnicianID
		meta["window"] = c.Window

	case ActionUnassign:
		meta["technician_id"] = req.AssignedTechnician()
		req.Unassign()

	case ActionStart:
		if req.StartedAt == nil {
			now := c.Now
			req.StartedAt = &now
		}

	case ActionComplete:
		completed := c.Now
		if req.StartedAt != nil && completed.Before(*req.StartedAt) {
			completed = *req.StartedAt
		}
		req.CompletedAt = &completed
		by := req.AssignedTechnician()
		if by == "" {
			by = c.Actor.ID
		}
		req.CompletedBy = &by
		req.TechnicianID = nil
		meta["parts"] = models.MergeParts(c.Payload.Parts)

	case ActionReportIssue:
		reason := strings.TrimSpace(c.Payload.Reason)
		meta["reason"] = reason
		meta["technician_id"] = req.AssignedTechnician()
		req.Unassign()
		req.OfficeNotes = models.AppendNote(req.OfficeNotes, "Issue reported: "+reason)

	case ActionUpdateNotes:
		req.TechnicianNotes = models.AppendNote(req.TechnicianNotes, c.Payload.Note)
		meta["note"] = strings.TrimSpace(c.Payload.Note)

	case ActionOfficePatch:
		applyPatch(req, c.Payload.Patch, meta)
	}

	if c.Rule.Target != "" {
		req.Status = c.Rule.Target
	}
	req.UpdatedAt = c.Now
	out.To = req.Status
	out.Release = hadTechnician && req.AssignedTechnician() == ""

	out.Intents = append(out.Intents, models.SideEffectIntent{
		Kind:      models.IntentLogActivity,
		RequestID: req.ID,
		Activity: &models.ActivityLogEntry{
			RequestID:  req.ID,
			ActorID:    c.Actor.ID,
			ActorRole:  c.Actor.Role,
			Action:     string(c.Rule.Action),
			FromStatus: out.From,
			ToStatus:   out.To,
			Meta:       encodeMeta(meta),
			CreatedAt:  c.Now,
		},
	})

	switch c.Rule.Action {
	case ActionComplete:
		out.Intents = append(out.Intents,
			models.SideEffectIntent{
				Kind:      models.IntentDecrementInventory,
				RequestID: req.ID,
				ActorID:   c.Actor.ID,
				Parts:     models.MergeParts(c.Payload.Parts),
			},
			models.SideEffectIntent{
				Kind:      models.IntentSendEmail,
				RequestID: req.ID,
				Template:  models.TemplateServiceReport,
				Recipient: req.CustomerID,
			},
		)
	case ActionReportIssue:
		out.Intents = append(out.Intents, models.SideEffectIntent{
			Kind:      models.IntentNotifyDispatch,
			RequestID: req.ID,
			ActorID:   c.Actor.ID,
		})
	}

	return out
}

func applyPatch(req *models.ServiceRequest, p *OfficePatch, meta map[string]interface{}) {
	if p == nil {
		return
	}
	fields := []string{}
	if p.OfficeNotes != nil {
		req.OfficeNotes = models.AppendNote(req.OfficeNotes, *p.OfficeNotes)
		fields = append(fields, "office_notes")
	}
	if p.Description != nil {
		req.Description = *p.Description
		fields = append(fields, "description")
	}
	if p.Priority != nil {
		req.Priority = *p.Priority
		fields = append(fields, "priority")
	}
	if p.Status != nil && *p.Status != req.Status {
		req.Status = *p.Status
		req.Unassign()
		fields = append(fields, "status")
	}
	meta["fields"] = fields
}

func encodeMeta(meta map[string]interface{}) types.JSONText {
	raw, err := json.Marshal(meta)
	if err != nil {
		return types.JSONText(`{}`)
	}
	return types.JSONText(raw)
}
