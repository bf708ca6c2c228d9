package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DLQPurger removes dead-lettered messages older than a retention window
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// GarbageCollector runs periodic DLQ purges, removing messages older than retention.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a new garbage collector. purger is used to purge DLQ messages
// older than retention; pass a RabbitMQ queue (implements DLQPurger) or another implementation.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start runs the GC loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.logger.Error("DLQ GC failed", zap.Error(err))
			}
		}
	}
}

// collect purges DLQ messages older than retention.
func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.logger.Info("DLQ GC purged messages",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention))
	}
	return nil
}

// PurgeOlderThan drains dead-lettered messages whose publish timestamp
// is older than retention. The first message still inside the window
// stops the sweep; the DLQ is roughly time-ordered so everything
// behind it is newer still.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		delivery, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to get DLQ message: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if delivery.Timestamp.IsZero() || delivery.Timestamp.Before(cutoff) {
			if err := delivery.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to ack purged message: %w", err)
			}
			purged++
			continue
		}

		// Still within retention, put it back and stop
		if err := delivery.Nack(false, true); err != nil {
			return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
		}
		return purged, nil
	}
}

var _ DLQPurger = (*RabbitMQQueue)(nil)
