package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-service-api/pkg/timewindow"
)

func TestNormalizeStatusAcceptsLegacySpellings(t *testing.T) {
	cases := map[string]RequestStatus{
		"IN PROGRESS":          StatusInProgress,
		"in-progress":          StatusInProgress,
		"In_Progress":          StatusInProgress,
		" waiting for parts ":  StatusWaitingForParts,
		"Attention Required":   StatusAttentionRequired,
		"completed":            StatusCompleted,
		"WAITING-FOR-APPROVAL": StatusWaitingForApproval,
	}
	for raw, want := range cases {
		got, ok := NormalizeStatus(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := NormalizeStatus("CANCELLED")
	assert.False(t, ok)
}

func TestStatusValidAndTerminal(t *testing.T) {
	assert.True(t, StatusScheduled.Valid())
	assert.False(t, RequestStatus("in progress").Valid())
	assert.True(t, StatusCompleted.IsTerminal())
	for _, s := range RequestStatuses {
		if s != StatusCompleted {
			assert.False(t, s.IsTerminal(), s)
		}
	}
}

func TestNormalizeRoleAndPriority(t *testing.T) {
	r, ok := NormalizeRole(" Dispatch ")
	require.True(t, ok)
	assert.Equal(t, RoleDispatch, r)
	_, ok = NormalizeRole("superuser")
	assert.False(t, ok)

	p, ok := NormalizePriority("high")
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, p)
	_, ok = NormalizePriority("urgent")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	orig := &ServiceRequest{ID: "r1", Status: StatusScheduled}
	orig.Assign("t1", timewindow.Window{Start: start, End: start.Add(time.Hour)})

	clone := orig.Clone()
	clone.Unassign()
	clone.Status = StatusNew

	assert.Equal(t, "t1", orig.AssignedTechnician())
	w, ok := orig.ScheduledWindow()
	require.True(t, ok)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, StatusScheduled, orig.Status)
	assert.Equal(t, "", clone.AssignedTechnician())
}

func TestAppendNote(t *testing.T) {
	assert.Equal(t, "first", AppendNote("", " first "))
	assert.Equal(t, "first\nsecond", AppendNote("first", "second"))
	assert.Equal(t, "first", AppendNote("first", "   "))
}

func TestClaimsActor(t *testing.T) {
	actor, ok := (&JWTClaims{UserID: "u1", Role: "TECHNICIAN"}).Actor()
	require.True(t, ok)
	assert.Equal(t, Actor{ID: "u1", Role: RoleTechnician}, actor)

	_, ok = (&JWTClaims{UserID: "u1", Role: "root"}).Actor()
	assert.False(t, ok)
}

func TestMergeParts(t *testing.T) {
	assert.Nil(t, MergeParts(nil))

	in := []PartUsage{{PartID: "P1", Quantity: 2}, {PartID: "P2", Quantity: 4}, {PartID: "P1", Quantity: 3}}
	assert.Equal(t, []PartUsage{{PartID: "P1", Quantity: 5}, {PartID: "P2", Quantity: 4}}, MergeParts(in))
	assert.Equal(t, 2, in[0].Quantity)
}
