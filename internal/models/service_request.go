package models

import (
	"strings"
	"time"

	"github.com/noah-isme/fleet-service-api/pkg/timewindow"
)

// RequestStatus is the closed set of lifecycle states of a service request.
type RequestStatus string

const (
	StatusNew                RequestStatus = "NEW"
	StatusWaiting            RequestStatus = "WAITING"
	StatusWaitingForApproval RequestStatus = "WAITING_FOR_APPROVAL"
	StatusWaitingForParts    RequestStatus = "WAITING_FOR_PARTS"
	StatusScheduled          RequestStatus = "SCHEDULED"
	StatusInProgress         RequestStatus = "IN_PROGRESS"
	StatusAttentionRequired  RequestStatus = "ATTENTION_REQUIRED"
	StatusCompleted          RequestStatus = "COMPLETED"
	StatusReschedule         RequestStatus = "RESCHEDULE"
)

// RequestStatuses lists every state in declaration order.
var RequestStatuses = []RequestStatus{
	StatusNew,
	StatusWaiting,
	StatusWaitingForApproval,
	StatusWaitingForParts,
	StatusScheduled,
	StatusInProgress,
	StatusAttentionRequired,
	StatusCompleted,
	StatusReschedule,
}

// NormalizeStatus maps external spellings such as "In Progress" or
// "in-progress" onto the closed enum.
func NormalizeStatus(raw string) (RequestStatus, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	for _, s := range RequestStatuses {
		if string(s) == key {
			return s, true
		}
	}
	return "", false
}

// Valid reports whether s is a member of the enum.
func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// Priority ranks service requests for dispatch.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// NormalizePriority maps a case-insensitive priority name onto the enum.
func NormalizePriority(raw string) (Priority, bool) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, true
	}
	return "", false
}

// ServiceRequest is a maintenance job for one vehicle at one location.
type ServiceRequest struct {
	ID              string        `db:"id" json:"id"`
	Status          RequestStatus `db:"status" json:"status"`
	CustomerID      string        `db:"customer_id" json:"customer_id"`
	VehicleID       string        `db:"vehicle_id" json:"vehicle_id"`
	LocationID      string        `db:"location_id" json:"location_id"`
	Description     string        `db:"description" json:"description"`
	Priority        Priority      `db:"priority" json:"priority"`
	TechnicianID    *string       `db:"technician_id" json:"technician_id,omitempty"`
	ScheduledStart  *time.Time    `db:"scheduled_start" json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time    `db:"scheduled_end" json:"scheduled_end,omitempty"`
	StartedAt       *time.Time    `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy     *string       `db:"completed_by" json:"completed_by,omitempty"`
	OfficeNotes     string        `db:"office_notes" json:"office_notes"`
	TechnicianNotes string        `db:"technician_notes" json:"technician_notes"`
	CreatedBy       string        `db:"created_by" json:"created_by"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so a transition can be staged without touching
// the stored value.
func (r *ServiceRequest) Clone() *ServiceRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.TechnicianID = cloneString(r.TechnicianID)
	c.CompletedBy = cloneString(r.CompletedBy)
	c.ScheduledStart = cloneTime(r.ScheduledStart)
	c.ScheduledEnd = cloneTime(r.ScheduledEnd)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	return &c
}

// AssignedTechnician returns the technician id or "" when unassigned.
func (r *ServiceRequest) AssignedTechnician() string {
	if r == nil || r.TechnicianID == nil {
		return ""
	}
	return *r.TechnicianID
}

// ScheduledWindow returns the booked window if one is set.
func (r *ServiceRequest) ScheduledWindow() (timewindow.Window, bool) {
	if r == nil || r.ScheduledStart == nil || r.ScheduledEnd == nil {
		return timewindow.Window{}, false
	}
	return timewindow.Window{Start: *r.ScheduledStart, End: *r.ScheduledEnd}, true
}

// Assign sets the technician and the booked window together.
func (r *ServiceRequest) Assign(technicianID string, w timewindow.Window) {
	tech := technicianID
	start, end := w.Start, w.End
	r.TechnicianID = &tech
	r.ScheduledStart = &start
	r.ScheduledEnd = &end
}

// Unassign clears the technician and the booked window together.
func (r *ServiceRequest) Unassign() {
	r.TechnicianID = nil
	r.ScheduledStart = nil
	r.ScheduledEnd = nil
}

// AppendNote adds text to an append-only notes field.
func AppendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

// CreateServiceRequest is the intake payload.
type CreateServiceRequest struct {
	CustomerID  string `json:"customer_id" validate:"required"`
	VehicleID   string `json:"vehicle_id" validate:"required"`
	LocationID  string `json:"location_id" validate:"required"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical LOW MEDIUM HIGH CRITICAL"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
