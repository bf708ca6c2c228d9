package queue

import (
	"context"
)

// MessageInterface is one delivered job awaiting acknowledgement
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error

	// Consume returns a channel of messages from the queue. Messages
	// arrive asynchronously and must be acknowledged by the caller.
	// Prefetch controls how many unacknowledged messages the consumer
	// holds. The channels close when ctx is cancelled or the
	// connection is lost.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}
