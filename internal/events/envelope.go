package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire form published on Redis channels.
type Envelope struct {
	EventType  EventType       `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(event Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:  event.Type(),
		OccurredAt: event.Timestamp().UTC(),
		Payload:    payload,
	}, nil
}
