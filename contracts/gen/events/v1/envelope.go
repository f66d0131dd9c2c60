package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical, versioned event envelope for cross-runtime use.
// This package is generated-contract-only and must stay backward compatible.
type Envelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	OccurredAt     time.Time       `json:"occurred_at"`
	SourceService  string          `json:"source_service"`
	StreamID       string          `json:"stream_id"`
	StreamType     string          `json:"stream_type"`
	GlobalPosition int64           `json:"global_position"`
	StreamVersion  int64           `json:"stream_version"`
	CorrelationID  string          `json:"correlation_id"`
	CausationID    string          `json:"causation_id"`
	SchemaVersion  int             `json:"schema_version"`
	PartitionKey   string          `json:"partition_key"`
	Data           json.RawMessage `json:"data"`
}
