// Package lifecycle holds the service request transition table and the pure
// guard and mutation logic built on it. Nothing here performs I/O.
package lifecycle

import (
	"strings"

	"github.com/noah-isme/fleet-service-api/internal/models"
)

// Action is an actor-initiated lifecycle operation.
type Action string

const (
	ActionSchedule    Action = "SCHEDULE"
	ActionReschedule  Action = "RESCHEDULE"
	ActionUnassign    Action = "UNASSIGN"
	ActionStart       Action = "START"
	ActionComplete    Action = "COMPLETE"
	ActionReportIssue Action = "REPORT_ISSUE"
	ActionUpdateNotes Action = "UPDATE_NOTES"
	ActionOfficePatch Action = "OFFICE_PATCH"
)

// Actions lists every action in table order.
var Actions = []Action{
	ActionSchedule,
	ActionReschedule,
	ActionUnassign,
	ActionStart,
	ActionComplete,
	ActionReportIssue,
	ActionUpdateNotes,
	ActionOfficePatch,
}

// ParseAction normalises an external action name.
func ParseAction(raw string) (Action, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for _, a := range Actions {
		if string(a) == key {
			return a, true
		}
	}
	return "", false
}

// Rule is one row of the transition table.
type Rule struct {
	Action Action
	Roles  []models.Role
	// Sources lists the legal source states; nil means any non-terminal state.
	Sources []models.RequestStatus
	// Target is the resulting state; empty means the status is unchanged.
	Target models.RequestStatus
	// Schedules marks actions that must pass the conflict engine first.
	Schedules bool
}

var (
	schedulers  = []models.Role{models.RoleDispatch, models.RoleAdmin}
	fieldCrew   = []models.Role{models.RoleTechnician, models.RoleAdmin}
	officeStaff = []models.Role{models.RoleOffice, models.RoleAdmin}
)

var table = map[Action]Rule{
	ActionSchedule: {
		Action: ActionSchedule,
		Roles:  schedulers,
		Sources: []models.RequestStatus{
			models.StatusNew,
			models.StatusWaiting,
			models.StatusWaitingForApproval,
			models.StatusReschedule,
		},
		Target:    models.StatusScheduled,
		Schedules: true,
	},
	ActionReschedule: {
		Action:    ActionReschedule,
		Roles:     schedulers,
		Sources:   []models.RequestStatus{models.StatusScheduled},
		Target:    models.StatusScheduled,
		Schedules: true,
	},
	ActionUnassign: {
		Action:  ActionUnassign,
		Roles:   schedulers,
		Sources: []models.RequestStatus{models.StatusScheduled},
		Target:  models.StatusReschedule,
	},
	ActionStart: {
		Action: ActionStart,
		Roles:  fieldCrew,
		Sources: []models.RequestStatus{
			models.StatusScheduled,
			models.StatusNew,
			models.StatusAttentionRequired,
		},
		Target: models.StatusInProgress,
	},
	ActionComplete: {
		Action:  ActionComplete,
		Roles:   fieldCrew,
		Sources: []models.RequestStatus{models.StatusInProgress},
		Target:  models.StatusCompleted,
	},
	ActionReportIssue: {
		Action: ActionReportIssue,
		Roles:  []models.Role{models.RoleTechnician},
		Target: models.StatusAttentionRequired,
	},
	ActionUpdateNotes: {
		Action: ActionUpdateNotes,
		Roles:  []models.Role{models.RoleTechnician},
	},
	ActionOfficePatch: {
		Action: ActionOfficePatch,
		Roles:  officeStaff,
	},
}

// Lookup returns the rule for an action.
func Lookup(a Action) (Rule, bool) {
	r, ok := table[a]
	return r, ok
}

// AllowsRole reports whether role may attempt the action at all.
func (r Rule) AllowsRole(role models.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// AllowsSource reports whether the action is legal from status.
func (r Rule) AllowsSource(status models.RequestStatus) bool {
	if status.IsTerminal() {
		return false
	}
	if r.Sources == nil {
		return true
	}
	for _, s := range r.Sources {
		if s == status {
			return true
		}
	}
	return false
}

// AvailableActions lists the actions role may take from status, in table order.
func AvailableActions(role models.Role, status models.RequestStatus) []Action {
	var out []Action
	for _, a := range Actions {
		r := table[a]
		if r.AllowsRole(role) && r.AllowsSource(status) {
			out = append(out, a)
		}
	}
	return out
}

// HoldingStatuses are the states an office patch may move a request into.
var HoldingStatuses = []models.RequestStatus{
	models.StatusWaiting,
	models.StatusWaitingForApproval,
	models.StatusWaitingForParts,
	models.StatusAttentionRequired,
	models.StatusReschedule,
}

// IsHolding reports whether status is a holding state.
func IsHolding(status models.RequestStatus) bool {
	for _, s := range HoldingStatuses {
		if s == status {
			return true
		}
	}
	return false
}
