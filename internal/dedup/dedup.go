package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL is how long a processed message id stays remembered.
// Webhook redeliveries arrive within minutes; an hour is ample.
const DefaultTTL = time.Hour

// Checker decides whether a webhook message was already processed
type Checker interface {
	Seen(ctx context.Context, messageID string) bool
	Close() error
}

// RedisChecker tracks processed message ids in Redis with SET NX.
// Redis being down fails open: a duplicate slipping through is better
// than dropping live messages.
type RedisChecker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ Checker = (*RedisChecker)(nil)

// NewRedisChecker creates a checker from a redis:// URL
func NewRedisChecker(redisURL string, ttl time.Duration, log *zap.Logger) (*RedisChecker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisChecker{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: log,
	}, nil
}

// Seen atomically records the message id and reports whether it was
// already present. An empty id is never deduplicated.
func (c *RedisChecker) Seen(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return false
	}

	stored, err := c.client.SetNX(ctx, "dedup:msg:"+messageID, 1, c.ttl).Result()
	if err != nil {
		c.logger.Warn("dedup check failed, processing anyway",
			zap.String("message_id", messageID),
			zap.Error(err))
		return false
	}

	// SETNX returns false when the key already existed
	return !stored
}

// Close releases the underlying Redis connection
func (c *RedisChecker) Close() error {
	return c.client.Close()
}
