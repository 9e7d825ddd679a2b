// Package messaging provides message queue adapters.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"inbox_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamSyncContinue = "inbox:sync:continue"
)

// RedisProducer implements out.MessageProducer using Redis Streams.
type RedisProducer struct {
	client redis.UniversalClient
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client redis.UniversalClient) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishSyncContinue publishes a sync continuation job.
func (p *RedisProducer) PublishSyncContinue(ctx context.Context, job *out.SyncContinueJob) error {
	return p.publish(ctx, StreamSyncContinue, job)
}

// publish publishes a job to a stream using go-redis.
func (p *RedisProducer) publish(ctx context.Context, stream string, job interface{}) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	return nil
}

// Ensure RedisProducer implements out.MessageProducer
var _ out.MessageProducer = (*RedisProducer)(nil)
