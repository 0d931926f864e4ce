package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-service-api/internal/core/lifecycle"
	"github.com/noah-isme/fleet-service-api/internal/models"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

func TestLifecycleDispatchScenario(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.newRequest(t, "R2")

	req := f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(10, 0, 11, 0)})
	assert.Equal(t, models.StatusScheduled, req.Status)
	assert.Equal(t, "T1", req.AssignedTechnician())

	_, _, err := f.apply(dispatchActor, "R2", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(10, 30, 11, 30)})
	requireCode(t, err, appErrors.ErrSchedulingConflict)
	var conflict *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, "R", conflict.Conflicts[0].RequestID)
	assert.Equal(t, models.StatusNew, f.get(t, "R2").Status)

	f.clock.Set(at(10, 5))
	req = f.mustApply(t, t1Actor, "R", "START", TransitionPayload{})
	assert.Equal(t, models.StatusInProgress, req.Status)
	require.NotNil(t, req.StartedAt)
	assert.Equal(t, at(10, 5), *req.StartedAt)

	f.clock.Set(at(10, 50))
	req, intents, err := f.apply(t1Actor, "R", "COMPLETE", TransitionPayload{Parts: []models.PartUsage{{PartID: "filter", Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, req.Status)
	require.NotNil(t, req.CompletedAt)
	assert.Equal(t, at(10, 50), *req.CompletedAt)
	assert.Empty(t, f.blocks(t, "T1"))
	require.Len(t, intents, 3)
	assert.Equal(t, models.IntentLogActivity, intents[0].Kind)
	assert.Equal(t, models.IntentDecrementInventory, intents[1].Kind)
	assert.Equal(t, models.IntentSendEmail, intents[2].Kind)
	assert.Equal(t, "cust-1", intents[2].Recipient)

	req = f.mustApply(t, dispatchActor, "R2", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(10, 30, 11, 30)})
	assert.Equal(t, models.StatusScheduled, req.Status)
}

func TestLifecycleReportIssueScenario(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
	f.mustApply(t, t1Actor, "R", "START", TransitionPayload{})

	req, intents, err := f.apply(t1Actor, "R", "REPORT_ISSUE", TransitionPayload{Reason: "part missing"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAttentionRequired, req.Status)
	assert.Nil(t, req.TechnicianID)
	assert.Contains(t, req.OfficeNotes, "part missing")
	assert.Empty(t, f.blocks(t, "T1"))
	require.Len(t, intents, 2)
	assert.Equal(t, models.IntentNotifyDispatch, intents[1].Kind)
}

func TestLifecycleFailedTransitionLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.newRequest(t, "R2")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
	f.mustApply(t, dispatchActor, "R2", "SCHEDULE", TransitionPayload{TechnicianID: "T2", Window: window(9, 0, 10, 0)})

	before := f.get(t, "R2")
	blocksBefore := f.blocks(t, "T2")

	// Moving R2 onto T1 at the same time conflicts with R.
	_, _, err := f.apply(dispatchActor, "R2", "RESCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 30, 10, 30)})
	requireCode(t, err, appErrors.ErrSchedulingConflict)

	assert.Equal(t, before, f.get(t, "R2"))
	assert.Equal(t, blocksBefore, f.blocks(t, "T2"))
	assert.Len(t, f.blocks(t, "T1"), 1)
}

func TestLifecycleRescheduleExcludesOwnBlock(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})

	req := f.mustApply(t, dispatchActor, "R", "RESCHEDULE", TransitionPayload{Window: window(9, 30, 10, 30)})
	assert.Equal(t, "T1", req.AssignedTechnician())
	assert.Equal(t, at(9, 30), *req.ScheduledStart)

	blocks := f.blocks(t, "T1")
	require.Len(t, blocks, 1)
	assert.Equal(t, at(9, 30), blocks[0].Start)
	assert.Equal(t, at(10, 30), blocks[0].End)
}

func TestLifecycleRescheduleToOtherTechnicianMovesBlock(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})

	f.mustApply(t, dispatchActor, "R", "RESCHEDULE", TransitionPayload{TechnicianID: "T2", Window: window(9, 0, 10, 0)})
	assert.Empty(t, f.blocks(t, "T1"))
	assert.Len(t, f.blocks(t, "T2"), 1)
}

func TestLifecycleAdjacentWindowsDoNotConflict(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.newRequest(t, "R2")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
	f.mustApply(t, dispatchActor, "R2", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(10, 0, 11, 0)})
	assert.Len(t, f.blocks(t, "T1"), 2)
}

func TestLifecycleRejectsInvalidWindow(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")

	_, _, err := f.apply(dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(10, 0, 10, 0)})
	requireCode(t, err, appErrors.ErrInvalidWindow)
	assert.Equal(t, models.StatusNew, f.get(t, "R").Status)
}

func TestLifecycleSnapsWindowsToGrid(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")

	in := window(9, 7, 9, 53)
	in.Snap = true
	req := f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: in})
	assert.Equal(t, at(9, 0), *req.ScheduledStart)
	assert.Equal(t, at(10, 0), *req.ScheduledEnd)
}

func TestLifecycleErrorKinds(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")

	_, _, err := f.apply(dispatchActor, "missing", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
	requireCode(t, err, appErrors.ErrNotFound)

	_, _, err = f.apply(dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "ghost", Window: window(9, 0, 10, 0)})
	requireCode(t, err, appErrors.ErrNotFound)

	_, _, err = f.apply(dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1"})
	requireCode(t, err, appErrors.ErrValidation)

	_, _, err = f.apply(dispatchActor, "R", "TELEPORT", TransitionPayload{})
	requireCode(t, err, appErrors.ErrInvalidTransition)

	_, _, err = f.apply(dispatchActor, "R", "COMPLETE", TransitionPayload{})
	require.Error(t, err)

	_, _, err = f.apply(models.Actor{Role: models.RoleDispatch}, "R", "SCHEDULE", TransitionPayload{})
	requireCode(t, err, appErrors.ErrUnauthorizedActor)
}

func TestLifecycleCustomerIsAlwaysRejected(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")

	for _, action := range lifecycle.Actions {
		_, _, err := f.apply(customerActor, "R", string(action), TransitionPayload{
			TechnicianID: "T1",
			Window:       window(9, 0, 10, 0),
			Reason:       "x",
			Note:         "x",
		})
		require.Error(t, err, string(action))
		assert.True(t,
			appErrors.HasCode(err, appErrors.ErrUnauthorizedActor) || appErrors.HasCode(err, appErrors.ErrInvalidTransition),
			"%s: %v", action, err)
	}
	assert.Equal(t, models.StatusNew, f.get(t, "R").Status)
}

func TestLifecycleTechnicianCannotStartSomeoneElsesJob(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})

	_, _, err := f.apply(t2Actor, "R", "START", TransitionPayload{})
	requireCode(t, err, appErrors.ErrUnauthorizedActor)
}

func TestLifecycleConcurrentCompleteSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
	f.mustApply(t, t1Actor, "R", "START", TransitionPayload{})

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.apply(t1Actor, "R", "COMPLETE", TransitionPayload{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if appErrors.HasCode(err, appErrors.ErrInvalidTransition) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, rejected)
}

func TestLifecycleConcurrentSchedulingNeverOverlaps(t *testing.T) {
	f := newFixture(t)
	ids := []string{"A", "B", "C", "D", "E", "F"}
	for _, id := range ids {
		f.newRequest(t, id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, _ = f.apply(dispatchActor, id, "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
		}(id)
	}
	wg.Wait()

	blocks := f.blocks(t, "T1")
	require.Len(t, blocks, 1)
	scheduled := 0
	for _, id := range ids {
		if f.get(t, id).Status == models.StatusScheduled {
			scheduled++
		}
	}
	assert.Equal(t, 1, scheduled)
}

func TestLifecycleOfficePatch(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})

	notes := "customer called"
	status := "waiting for parts"
	priority := "high"
	req := f.mustApply(t, officeActor, "R", "OFFICE_PATCH", TransitionPayload{Patch: &OfficePatchInput{
		OfficeNotes: &notes,
		Status:      &status,
		Priority:    &priority,
	}})
	assert.Equal(t, models.StatusWaitingForParts, req.Status)
	assert.Equal(t, models.PriorityHigh, req.Priority)
	assert.Equal(t, "customer called", req.OfficeNotes)
	assert.Nil(t, req.TechnicianID)
	assert.Empty(t, f.blocks(t, "T1"))

	bad := "COMPLETED"
	_, _, err := f.apply(officeActor, "R", "OFFICE_PATCH", TransitionPayload{Patch: &OfficePatchInput{Status: &bad}})
	requireCode(t, err, appErrors.ErrValidation)

	unknown := "urgent"
	_, _, err = f.apply(officeActor, "R", "OFFICE_PATCH", TransitionPayload{Patch: &OfficePatchInput{Priority: &unknown}})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestLifecycleCompletedIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.newRequest(t, "R")
	f.mustApply(t, dispatchActor, "R", "SCHEDULE", TransitionPayload{TechnicianID: "T1", Window: window(9, 0, 10, 0)})
	f.mustApply(t, t1Actor, "R", "START", TransitionPayload{})
	f.mustApply(t, t1Actor, "R", "COMPLETE", TransitionPayload{})

	for _, action := range lifecycle.Actions {
		_, _, err := f.apply(adminActor, "R", string(action), TransitionPayload{Reason: "x", Note: "x", TechnicianID: "T1", Window: window(12, 0, 13, 0)})
		requireCode(t, err, appErrors.ErrInvalidTransition)
	}
}
