package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindWebhook = "webhook"
	KindFunnel  = "funnel"
)

// Event is an append-only audit row. Nothing reads it back to grant access.
type Event struct {
	ID        string
	Kind      string
	EventType string
	Reference string
	Payload   map[string]any
	CreatedAt time.Time
}

// NewEvent builds an Event with a fresh id and timestamp.
func NewEvent(kind, eventType, reference string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		EventType: eventType,
		Reference: reference,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
