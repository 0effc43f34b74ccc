// Package queue delivers run ids to a pool of workers. Backends are an
// in-process channel, a Redis list and a RabbitMQ queue.
//
// Delivery is at least once: a handler may see an id twice, so handlers
// claim the run before doing work.
package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing to a closed queue.
var ErrClosed = errors.New("queue closed")

// Handler processes one delivered id.
type Handler func(ctx context.Context, id string) error

// Queue publishes and consumes ids.
type Queue interface {
	Publish(ctx context.Context, id string) error
	// Consume runs workers handlers until ctx is done or delivery fails.
	Consume(ctx context.Context, workers int, handler Handler) error
	Close() error
}
