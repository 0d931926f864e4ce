package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())

	assert.Equal(t, start.Add(time.Hour), f.Advance(time.Hour))
	assert.Equal(t, start.Add(time.Hour), f.Now())

	f.Set(start)
	assert.Equal(t, start, f.Now())
}

func TestRealIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Real().Now().Location())
}
