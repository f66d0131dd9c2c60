package messaging

import (
	"context"

	"meridian/internal/shared/events"
)

// Publisher adapts the bus to the orchestrator's post-commit publish hook.
// Events fan out on one topic per stream type (e.g. "product", "order").
type Publisher struct {
	Bus           *Kafka
	SourceService string
}

// Publish implements orchestrator.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	return p.Bus.Publish(ctx, event.StreamType, events.ToEnvelope(event, p.SourceService))
}
