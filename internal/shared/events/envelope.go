package events

import (
	contractsv1 "meridian/contracts/gen/events/v1"
)

// ToEnvelope converts a log event into the canonical wire envelope.
// PartitionKey defaults to the stream id so per-aggregate ordering survives
// transport partitioning.
func ToEnvelope(event Event, sourceService string) contractsv1.Envelope {
	return contractsv1.Envelope{
		EventID:        event.EventID,
		EventType:      event.EventType,
		OccurredAt:     event.OccurredAt,
		SourceService:  sourceService,
		StreamID:       event.StreamID,
		StreamType:     event.StreamType,
		GlobalPosition: event.GlobalPosition,
		StreamVersion:  event.StreamVersion,
		CorrelationID:  event.CorrelationID,
		CausationID:    event.CausationID,
		SchemaVersion:  event.SchemaVersion,
		PartitionKey:   event.StreamID,
		Data:           event.Payload,
	}
}

// FromEnvelope reconstructs the log event carried by a wire envelope.
func FromEnvelope(envelope contractsv1.Envelope) Event {
	return Event{
		EventID:        envelope.EventID,
		StreamID:       envelope.StreamID,
		StreamType:     envelope.StreamType,
		EventType:      envelope.EventType,
		Payload:        envelope.Data,
		GlobalPosition: envelope.GlobalPosition,
		StreamVersion:  envelope.StreamVersion,
		CorrelationID:  envelope.CorrelationID,
		CausationID:    envelope.CausationID,
		SchemaVersion:  envelope.SchemaVersion,
		OccurredAt:     envelope.OccurredAt,
	}
}
