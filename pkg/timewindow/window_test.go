package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2024, 5, 6, h, m, 0, 0, time.UTC)
}

func TestNewRejectsInvertedAndEmpty(t *testing.T) {
	_, err := New(at(10, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New(at(11, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New(time.Time{}, at(10, 0))
	assert.ErrorIs(t, err, ErrInvalid)

	w, err := New(at(10, 0), at(11, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, w.Duration())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := Window{Start: at(10, 0), End: at(11, 0)}

	cases := []struct {
		name  string
		other Window
		want  bool
	}{
		{"identical", base, true},
		{"partial tail", Window{Start: at(10, 30), End: at(11, 30)}, true},
		{"partial head", Window{Start: at(9, 30), End: at(10, 1)}, true},
		{"contained", Window{Start: at(10, 15), End: at(10, 45)}, true},
		{"enclosing", Window{Start: at(9, 0), End: at(12, 0)}, true},
		{"touching end", Window{Start: at(11, 0), End: at(12, 0)}, false},
		{"touching start", Window{Start: at(9, 0), End: at(10, 0)}, false},
		{"disjoint", Window{Start: at(13, 0), End: at(14, 0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base))
		})
	}
}

func TestSnapRoundsToNearestBoundary(t *testing.T) {
	w := Window{Start: at(10, 7), End: at(11, 8)}
	snapped := w.Snap(DefaultGrid)
	assert.Equal(t, at(10, 0), snapped.Start)
	assert.Equal(t, at(11, 15), snapped.End)

	half := Window{Start: time.Date(2024, 5, 6, 10, 7, 30, 0, time.UTC), End: at(10, 52)}.Snap(DefaultGrid)
	assert.Equal(t, at(10, 15), half.Start)
	assert.Equal(t, at(10, 45), half.End)
}

func TestSnapCanCollapseShortWindow(t *testing.T) {
	w := Window{Start: at(10, 1), End: at(10, 5)}.Snap(DefaultGrid)
	assert.ErrorIs(t, w.Validate(), ErrInvalid)
}

func TestContains(t *testing.T) {
	w := Window{Start: at(10, 0), End: at(11, 0)}
	assert.True(t, w.Contains(at(10, 0)))
	assert.True(t, w.Contains(at(10, 59)))
	assert.False(t, w.Contains(at(11, 0)))
}

func TestEqualIgnoresLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	a := Window{Start: at(10, 0), End: at(11, 0)}
	b := Window{Start: at(10, 0).In(loc), End: at(11, 0).In(loc)}
	assert.True(t, a.Equal(b))
	assert.Equal(t, a, b.UTC())
}
