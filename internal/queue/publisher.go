package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	TaskBlobRemove       = "blob.remove"
	TaskComplaintCreated = "complaint.created"
)

// Publisher appends tasks to a redis stream. A nil client makes every
// publish a no-op, which is how the service runs without redis.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) Publish(ctx context.Context, taskType string, values map[string]any) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload := make(map[string]any, len(values)+1)
	for k, v := range values {
		payload[k] = v
	}
	payload["type"] = taskType

	if _, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: payload,
	}).Result(); err != nil {
		return fmt.Errorf("xadd %s: %w", taskType, err)
	}
	return nil
}
