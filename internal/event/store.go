package event

import "context"

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, events ...Event) error
	Load(ctx context.Context, aggregateID string) ([]Event, error)
}
