// Package timewindow implements half-open time intervals [Start, End).
package timewindow

import (
	"errors"
	"time"
)

// DefaultGrid is the resolution of interactive schedule pickers.
const DefaultGrid = 15 * time.Minute

// ErrInvalid is returned when a window does not end strictly after it starts.
var ErrInvalid = errors.New("timewindow: end must be after start")

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds a validated window.
func New(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate rejects empty and inverted windows.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() || !w.End.After(w.Start) {
		return ErrInvalid
	}
	return nil
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether the two intervals share any instant. Windows that
// only touch at an endpoint do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Equal compares instants, ignoring location.
func (w Window) Equal(o Window) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

// Snap rounds both endpoints to the nearest multiple of grid (halfway values
// round up). A non-positive grid returns the window unchanged. The result is
// not validated; a short window may collapse to zero length.
func (w Window) Snap(grid time.Duration) Window {
	if grid <= 0 {
		return w
	}
	return Window{Start: snap(w.Start, grid), End: snap(w.End, grid)}
}

func snap(t time.Time, grid time.Duration) time.Time {
	return t.UTC().Round(grid)
}

// UTC returns the window with both endpoints in UTC.
func (w Window) UTC() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}
