package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_WithoutRedisIsNoop(t *testing.T) {
	var nilPublisher *Publisher
	assert.NoError(t, nilPublisher.Publish(context.Background(), TaskBlobRemove, map[string]any{"key": "k"}))

	p := NewPublisher(nil, "complaints:tasks")
	assert.NoError(t, p.Publish(context.Background(), TaskComplaintCreated, nil))
}
