package events

import (
	"encoding/json"
	"time"
)

// Category separates events owned by one aggregate from cross-context
// integration events.
type Category string

const (
	CategoryDomain      Category = "domain"
	CategoryIntegration Category = "integration"
)

// Event is the canonical append-only log record. Events are immutable once
// appended; GlobalPosition is assigned by the log at append time and is the
// log-wide ordering key.
type Event struct {
	EventID        string          `json:"event_id"`
	StreamID       string          `json:"stream_id"`
	StreamType     string          `json:"stream_type"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	GlobalPosition int64           `json:"global_position"`
	StreamVersion  int64           `json:"stream_version"`
	CorrelationID  string          `json:"correlation_id"`
	CausationID    string          `json:"causation_id"`
	SchemaVersion  int             `json:"schema_version"`
	Category       Category        `json:"category"`
	BoundedContext string          `json:"bounded_context"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// DecodePayload unmarshals the opaque payload into the given target.
func (e Event) DecodePayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// MarshalPayload is a small helper for deciders constructing events.
func MarshalPayload(payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
