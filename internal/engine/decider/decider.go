// Package decider defines the pure decision contract every command handler
// implements: (state, command) -> result, no I/O, deterministic.
package decider

import (
	"encoding/json"

	"meridian/internal/shared/events"
)

// Status is the command result taxonomy. Every handler in the system must
// respect the rejected/failed distinction: rejections carry no event,
// failures record a business outcome event.
type Status string

const (
	// StatusSuccess means the command achieved its effect and produced an event.
	StatusSuccess Status = "success"
	// StatusRejected means validation or an invariant refused the command.
	// No event is produced and retrying with the same arguments cannot help.
	StatusRejected Status = "rejected"
	// StatusFailed means the command was valid but the business outcome was
	// negative. The outcome itself is meaningful and produces an event.
	StatusFailed Status = "failed"
	// StatusDuplicate means the commandId was seen before; the stored result
	// is replayed verbatim.
	StatusDuplicate Status = "duplicate"
	// StatusConflictScheduled means an optimistic-concurrency conflict was
	// detected and a serialized retry has been scheduled. The caller is not
	// blocked waiting for it.
	StatusConflictScheduled Status = "conflict_scheduled"
)

// Rejection codes shared across deciders.
const (
	CodeProductNotFound            = "PRODUCT_NOT_FOUND"
	CodeDuplicateSKU               = "DUPLICATE_SKU"
	CodeInvalidCommand             = "INVALID_COMMAND"
	CodeInvalidLifecycleTransition = "INVALID_LIFECYCLE_TRANSITION"
	CodeMaxRetriesExceeded         = "MAX_RETRIES_EXCEEDED"
	CodeNotFound                   = "NOT_FOUND"
	CodeInvalidState               = "INVALID_STATE"
)

// Command targets one aggregate stream. CommandID is the idempotency key,
// scoped per (streamType, streamId).
type Command struct {
	CommandID     string          `json:"command_id"`
	CommandType   string          `json:"command_type"`
	TenantID      string          `json:"tenant_id"`
	StreamID      string          `json:"stream_id"`
	StreamType    string          `json:"stream_type"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// DecodePayload unmarshals the command payload into the given target.
func (c Command) DecodePayload(target any) error {
	return json.Unmarshal(c.Payload, target)
}

// Result is the tagged outcome of a decision or orchestration.
type Result struct {
	Status Status `json:"status"`

	// Success fields.
	Data    json.RawMessage `json:"data,omitempty"`
	Version int64           `json:"version,omitempty"`
	Event   *events.Event   `json:"event,omitempty"`

	// Rejected fields.
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Failed carries Reason, Event and ExpectedVersion.
	ExpectedVersion int64 `json:"expected_version,omitempty"`

	// Context carries structured diagnostic detail for rejected/failed results.
	Context map[string]any `json:"context,omitempty"`

	// Retry metadata, preserved for observability when a result came through
	// the conflict retry path. Callers see the result exactly as a fresh
	// command's; these fields are informational only.
	Attempt     int   `json:"attempt,omitempty"`
	ScheduledMs int64 `json:"scheduled_ms,omitempty"`
}

// Success builds a success result carrying the produced event.
func Success(data json.RawMessage, version int64, event *events.Event) Result {
	return Result{Status: StatusSuccess, Data: data, Version: version, Event: event}
}

// Rejected builds a validation rejection. No event is produced.
func Rejected(code, reason string, context map[string]any) Result {
	return Result{Status: StatusRejected, Code: code, Reason: reason, Context: context}
}

// Failed builds a recorded business failure. The event documents the outcome.
func Failed(reason string, event *events.Event, expectedVersion int64, context map[string]any) Result {
	return Result{
		Status:          StatusFailed,
		Reason:          reason,
		Event:           event,
		ExpectedVersion: expectedVersion,
		Context:         context,
	}
}

// HasEvent reports whether the result carries an event to append.
func (r Result) HasEvent() bool {
	return (r.Status == StatusSuccess || r.Status == StatusFailed) && r.Event != nil
}

// Decider is the pure decision function for one stream type. State is the
// aggregate's materialized state (nil when the stream does not exist yet).
type Decider interface {
	Decide(state any, command Command) Result
}

// Func adapts a plain function to the Decider interface.
type Func func(state any, command Command) Result

// Decide implements Decider.
func (f Func) Decide(state any, command Command) Result {
	return f(state, command)
}
