package port

import "context"

// EventPublisher publishes pipeline outcome events for downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, event interface{}) error
	Close() error
}
