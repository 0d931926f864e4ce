package models

import (
	"fmt"
	"time"

	"github.com/noah-isme/fleet-service-api/pkg/timewindow"
)

// ScheduleBlock reserves a technician for the window of one scheduled request.
type ScheduleBlock struct {
	ID           string    `db:"id" json:"id"`
	RequestID    string    `db:"request_id" json:"request_id"`
	TechnicianID string    `db:"technician_id" json:"technician_id"`
	Start        time.Time `db:"start_at" json:"start"`
	End          time.Time `db:"end_at" json:"end"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Window returns the block's reserved interval.
func (b ScheduleBlock) Window() timewindow.Window {
	return timewindow.Window{Start: b.Start, End: b.End}
}

// Technician is referenced by schedule blocks. Only active technicians can be booked.
type Technician struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ScheduleConflictError is returned when a candidate window collides with
// existing blocks of the same technician.
type ScheduleConflictError struct {
	Message      string            `json:"message"`
	TechnicianID string            `json:"technician_id"`
	Requested    timewindow.Window `json:"requested"`
	Conflicts    []ScheduleBlock   `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("technician %s has %d conflicting block(s)", e.TechnicianID, len(e.Conflicts))
}
