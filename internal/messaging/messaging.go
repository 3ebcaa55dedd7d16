package messaging

import "context"

// Publisher publishes domain events to a message broker. The consistency
// engine calls it strictly after the owning transaction has committed.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber consumes messages from a topic until the context is canceled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// NopPublisher discards events. Used in tests and when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	return nil
}
