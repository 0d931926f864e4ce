package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/jobs"
)

type notifierStub struct {
	mu       sync.Mutex
	emails   []string
	notified []string
	failures int
}

func (n *notifierStub) SendEmail(_ context.Context, template, recipient, requestID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures > 0 {
		n.failures--
		return errors.New("smtp unavailable")
	}
	n.emails = append(n.emails, template+":"+recipient+":"+requestID)
	return nil
}

func (n *notifierStub) NotifyDispatch(_ context.Context, requestID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, requestID)
	return nil
}

func (n *notifierStub) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.emails...)
}

func completionIntents() []models.SideEffectIntent {
	return []models.SideEffectIntent{
		{Kind: models.IntentLogActivity, RequestID: "R", Activity: &models.ActivityLogEntry{RequestID: "R", ActorID: "T1", Action: "COMPLETE"}},
		{Kind: models.IntentDecrementInventory, RequestID: "R", ActorID: "T1", Parts: []models.PartUsage{{PartID: "filter", Quantity: 2}}},
		{Kind: models.IntentSendEmail, RequestID: "R", Template: models.TemplateServiceReport, Recipient: "cust-1"},
		{Kind: models.IntentNotifyDispatch, RequestID: "R"},
	}
}

func TestIntentDispatcherRunsInlineWithoutQueue(t *testing.T) {
	ledger := store.NewMemoryLedger()
	ledger.SetStock("filter", 10)
	notifier := &notifierStub{}
	d := NewIntentDispatcher(ledger, ledger, notifier, NewMetricsService(), nil)

	intents := completionIntents()
	d.Dispatch(context.Background(), intents)
	d.Dispatch(context.Background(), intents)

	entries, err := ledger.ListByRequest(context.Background(), "R")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 8, ledger.Stock("filter"))
	assert.Len(t, notifier.sent(), 2)
	assert.Equal(t, []string{"R", "R"}, notifier.notified)
}

func TestIntentDispatcherRetriesOnQueue(t *testing.T) {
	ledger := store.NewMemoryLedger()
	ledger.SetStock("filter", 10)
	notifier := &notifierStub{failures: 1}
	d := NewIntentDispatcher(ledger, ledger, notifier, NewMetricsService(), nil)

	queue := jobs.NewQueue("intents", d.Handle, jobs.QueueConfig{Workers: 2, MaxRetries: 2, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	d.Attach(queue)

	d.Dispatch(context.Background(), completionIntents())

	require.Eventually(t, func() bool { return len(notifier.sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, queue.Stop(context.Background()))
	assert.Equal(t, "service_report:cust-1:R", notifier.sent()[0])
	assert.Equal(t, 8, ledger.Stock("filter"))
}

func TestIntentDispatcherSkipsEmptyWork(t *testing.T) {
	d := NewIntentDispatcher(nil, nil, nil, nil, nil)
	assert.NoError(t, d.run(context.Background(), models.SideEffectIntent{Kind: models.IntentDecrementInventory}))
	assert.NoError(t, d.run(context.Background(), models.SideEffectIntent{Kind: models.IntentLogActivity}))
	assert.NoError(t, d.run(context.Background(), models.SideEffectIntent{Kind: models.IntentSendEmail}))
	assert.Error(t, d.run(context.Background(), models.SideEffectIntent{Kind: "TELEPATHY"}))
	assert.NoError(t, d.Handle(context.Background(), jobs.Job{ID: "x", Payload: "garbage"}))
}

func TestIntentDispatcherUnknownPartFails(t *testing.T) {
	ledger := store.NewMemoryLedger()
	d := NewIntentDispatcher(ledger, ledger, nil, nil, nil)
	err := d.run(context.Background(), models.SideEffectIntent{Kind: models.IntentDecrementInventory, RequestID: "R", Parts: []models.PartUsage{{PartID: "ghost", Quantity: 1}}})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
