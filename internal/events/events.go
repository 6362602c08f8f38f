// Package events publishes best-effort document lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"docflow-backend/internal/shared/telemetry"
)

const (
	TypeDocumentUploaded = "document.uploaded"
	TypeDocumentReviewed = "document.reviewed"
	TypeDocumentDeleted  = "document.deleted"
)

// Event is the payload sent to downstream consumers.
type Event struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"documentId"`
	ActorID    string    `json:"actorId"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Version    int       `json:"version"`
}

// Encode returns the JSON representation of an event.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses a JSON payload into an Event.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Emit publishes ev and logs failures. Callers never see publish errors.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if ev.Version == 0 {
		ev.Version = 1
	}
	if err := p.Publish(ctx, ev); err != nil {
		telemetry.Warn("events.publish_failed", map[string]any{
			"type":        ev.Type,
			"document_id": ev.DocumentID,
			"error":       err.Error(),
		})
	}
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*Recorder)(nil)
)
