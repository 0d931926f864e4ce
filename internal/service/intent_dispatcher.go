package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/pkg/jobs"
)

// ActivityAppender persists activity log entries.
type ActivityAppender interface {
	Append(ctx context.Context, entry *models.ActivityLogEntry) error
}

// InventoryConsumer lowers stock for the parts used by a request.
type InventoryConsumer interface {
	Consume(ctx context.Context, requestID, actorID string, parts []models.PartUsage) error
}

// Notifier delivers outbound messages.
type Notifier interface {
	SendEmail(ctx context.Context, template, recipient, requestID string) error
	NotifyDispatch(ctx context.Context, requestID, actorID string) error
}

// LogNotifier records notifications in the log; delivery is handled by an
// external mailer reading the same stream.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier instantiates LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// SendEmail logs the email request.
func (n *LogNotifier) SendEmail(_ context.Context, template, recipient, requestID string) error {
	n.logger.Info("email requested",
		zap.String("template", template),
		zap.String("recipient", recipient),
		zap.String("request_id", requestID),
	)
	return nil
}

// NotifyDispatch logs the dispatch notification.
func (n *LogNotifier) NotifyDispatch(_ context.Context, requestID, actorID string) error {
	n.logger.Info("dispatch notified", zap.String("request_id", requestID), zap.String("reported_by", actorID))
	return nil
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// IntentDispatcher executes side-effect intents on the background queue.
// Each intent is its own job so a failing mailer never blocks the activity log.
type IntentDispatcher struct {
	queue     jobEnqueuer
	activity  ActivityAppender
	inventory InventoryConsumer
	notifier  Notifier
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewIntentDispatcher instantiates IntentDispatcher. Attach a queue before
// dispatching; without one intents run inline.
func NewIntentDispatcher(activity ActivityAppender, inventory InventoryConsumer, notifier Notifier, metrics *MetricsService, logger *zap.Logger) *IntentDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &IntentDispatcher{
		activity:  activity,
		inventory: inventory,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// Attach sets the queue used by Dispatch. The queue's handler must be Handle.
func (d *IntentDispatcher) Attach(queue jobEnqueuer) {
	d.queue = queue
}

// Dispatch enqueues intents in emission order. An intent that cannot be
// enqueued is executed inline so it is not lost.
func (d *IntentDispatcher) Dispatch(ctx context.Context, intents []models.SideEffectIntent) {
	for _, intent := range intents {
		if intent.Activity != nil && intent.Activity.ID == "" {
			// Fixed before enqueueing so retries append the same row.
			intent.Activity.ID = uuid.NewString()
		}
		if d.queue != nil {
			err := d.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: string(intent.Kind), Payload: intent})
			if err == nil {
				continue
			}
			d.logger.Warn("intent enqueue failed, running inline",
				zap.String("kind", string(intent.Kind)),
				zap.String("request_id", intent.RequestID),
				zap.Error(err),
			)
		}
		if err := d.execute(context.WithoutCancel(ctx), intent); err != nil {
			d.logger.Error("intent failed",
				zap.String("kind", string(intent.Kind)),
				zap.String("request_id", intent.RequestID),
				zap.Error(err),
			)
		}
	}
}

// Handle processes a queue job carrying one intent.
func (d *IntentDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	intent, ok := job.Payload.(models.SideEffectIntent)
	if !ok {
		d.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return d.execute(ctx, intent)
}

func (d *IntentDispatcher) execute(ctx context.Context, intent models.SideEffectIntent) error {
	err := d.run(ctx, intent)
	d.metrics.RecordIntent(string(intent.Kind), err)
	return err
}

func (d *IntentDispatcher) run(ctx context.Context, intent models.SideEffectIntent) error {
	switch intent.Kind {
	case models.IntentLogActivity:
		if intent.Activity == nil || d.activity == nil {
			return nil
		}
		return d.activity.Append(ctx, intent.Activity)
	case models.IntentDecrementInventory:
		if len(intent.Parts) == 0 || d.inventory == nil {
			return nil
		}
		return d.inventory.Consume(ctx, intent.RequestID, intent.ActorID, intent.Parts)
	case models.IntentSendEmail:
		if intent.Recipient == "" {
			return nil
		}
		return d.notifier.SendEmail(ctx, intent.Template, intent.Recipient, intent.RequestID)
	case models.IntentNotifyDispatch:
		return d.notifier.NotifyDispatch(ctx, intent.RequestID, intent.ActorID)
	}
	return fmt.Errorf("unknown intent kind %q", intent.Kind)
}
