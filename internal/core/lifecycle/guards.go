package lifecycle

import (
	"fmt"
	"strings"

	"github.com/noah-isme/fleet-service-api/internal/models"
)

// DenialKind classifies why a transition was refused.
type DenialKind string

const (
	DenialUnauthorized      DenialKind = "UNAUTHORIZED"
	DenialInvalidTransition DenialKind = "INVALID_TRANSITION"
	DenialInvalidInput      DenialKind = "INVALID_INPUT"
)

// Denial is returned by the guards when an action may not proceed.
type Denial struct {
	Kind   DenialKind
	Reason string
}

func (d *Denial) Error() string {
	return d.Reason
}

func deny(kind DenialKind, format string, args ...interface{}) *Denial {
	return &Denial{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate decides whether actor may apply action to req.
//
// A role with no transition at all from the current state is Unauthorized;
// a role that has other options from this state, or an action whose source
// state is wrong, is an InvalidTransition.
func Evaluate(action Action, actor models.Actor, req *models.ServiceRequest) (Rule, error) {
	rule, ok := Lookup(action)
	if !ok {
		return Rule{}, deny(DenialInvalidTransition, "unknown action %q", action)
	}
	if req.Status.IsTerminal() {
		return Rule{}, deny(DenialInvalidTransition, "request %s is %s and cannot change", req.ID, req.Status)
	}
	if !rule.AllowsRole(actor.Role) {
		if len(AvailableActions(actor.Role, req.Status)) == 0 {
			return Rule{}, deny(DenialUnauthorized, "role %q has no transitions from %s", actor.Role, req.Status)
		}
		return Rule{}, deny(DenialInvalidTransition, "role %q cannot %s", actor.Role, action)
	}
	if !rule.AllowsSource(req.Status) {
		return Rule{}, deny(DenialInvalidTransition, "%s not allowed from %s", action, req.Status)
	}
	if actor.Role == models.RoleTechnician {
		if err := checkOwnership(action, actor, req); err != nil {
			return Rule{}, err
		}
	}
	return rule, nil
}

// A technician may only touch a job assigned to them. START additionally
// requires that the job is assigned at all.
func checkOwnership(action Action, actor models.Actor, req *models.ServiceRequest) error {
	assigned := req.AssignedTechnician()
	if action == ActionStart && assigned == "" {
		return deny(DenialUnauthorized, "request %s has no assigned technician", req.ID)
	}
	if assigned != "" && assigned != actor.ID {
		return deny(DenialUnauthorized, "request %s is assigned to another technician", req.ID)
	}
	return nil
}

// ValidatePayload checks the per-action required inputs.
func ValidatePayload(action Action, p Payload) error {
	switch action {
	case ActionSchedule:
		if p.TechnicianID == "" {
			return deny(DenialInvalidInput, "technician_id is required")
		}
		if p.Window == nil {
			return deny(DenialInvalidInput, "window is required")
		}
	case ActionReschedule:
		if p.Window == nil {
			return deny(DenialInvalidInput, "window is required")
		}
	case ActionReportIssue:
		if isBlank(p.Reason) {
			return deny(DenialInvalidInput, "reason is required")
		}
	case ActionUpdateNotes:
		if isBlank(p.Note) {
			return deny(DenialInvalidInput, "note is required")
		}
	case ActionOfficePatch:
		if p.Patch == nil || p.Patch.Empty() {
			return deny(DenialInvalidInput, "patch must set at least one field")
		}
		if s := p.Patch.Status; s != nil && !IsHolding(*s) {
			return deny(DenialInvalidInput, "status %s cannot be set by a patch", *s)
		}
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
