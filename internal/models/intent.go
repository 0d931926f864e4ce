package models

// IntentKind names a side effect executed outside the transactional core.
type IntentKind string

const (
	IntentLogActivity        IntentKind = "LOG_ACTIVITY"
	IntentDecrementInventory IntentKind = "DECREMENT_INVENTORY"
	IntentSendEmail          IntentKind = "SEND_EMAIL"
	IntentNotifyDispatch     IntentKind = "NOTIFY_DISPATCH"
)

// Email templates referenced by intents.
const (
	TemplateServiceReport = "service_report"
)

// PartUsage is a quantity of one inventory part consumed by a job.
type PartUsage struct {
	PartID   string `json:"part_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// SideEffectIntent is a deferred instruction emitted by a committed transition.
type SideEffectIntent struct {
	Kind      IntentKind        `json:"kind"`
	RequestID string            `json:"request_id"`
	ActorID   string            `json:"actor_id,omitempty"`
	Activity  *ActivityLogEntry `json:"activity,omitempty"`
	Parts     []PartUsage       `json:"parts,omitempty"`
	Template  string            `json:"template,omitempty"`
	Recipient string            `json:"recipient,omitempty"`
}

// MergeParts folds repeated part lines into one line per part, summing the
// quantities and keeping first-seen order.
func MergeParts(parts []PartUsage) []PartUsage {
	if len(parts) == 0 {
		return nil
	}
	index := make(map[string]int, len(parts))
	merged := make([]PartUsage, 0, len(parts))
	for _, p := range parts {
		if i, ok := index[p.PartID]; ok {
			merged[i].Quantity += p.Quantity
			continue
		}
		index[p.PartID] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
