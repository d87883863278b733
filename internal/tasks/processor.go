package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"civicsnap/internal/observability"
	"civicsnap/internal/queue"
)

type BlobRemover interface {
	Remove(ctx context.Context, key string) error
}

type Processor struct {
	blobs   BlobRemover
	metrics *observability.Metrics
	logger  zerolog.Logger
}

type TaskPayload struct {
	Type        string `json:"type"`
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Reason      string `json:"reason"`
	ComplaintID string `json:"complaintId"`
	Category    string `json:"category"`
	Ward        string `json:"ward"`
	ImageURL    string `json:"imageUrl"`
}

func NewProcessor(blobs BlobRemover, metrics *observability.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		blobs:   blobs,
		metrics: metrics,
		logger:  logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	var err error
	switch payload.Type {
	case queue.TaskBlobRemove:
		err = p.handleBlobRemove(ctx, payload)
	case queue.TaskComplaintCreated:
		err = p.handleComplaintCreated(ctx, payload)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	p.metrics.TasksProcessed.WithLabelValues(payload.Type, result).Inc()
	return err
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleBlobRemove(ctx context.Context, payload TaskPayload) error {
	if payload.Key == "" {
		return errors.New("blob.remove without key")
	}
	if err := p.blobs.Remove(ctx, payload.Key); err != nil {
		return err
	}
	p.logger.Info().
		Str("bucket", payload.Bucket).
		Str("key", payload.Key).
		Str("reason", payload.Reason).
		Msg("orphaned blob removed")
	return nil
}

func (p *Processor) handleComplaintCreated(_ context.Context, payload TaskPayload) error {
	p.logger.Info().
		Str("complaint_id", payload.ComplaintID).
		Str("category", payload.Category).
		Str("ward", payload.Ward).
		Str("image_url", payload.ImageURL).
		Msg("complaint routed")
	return nil
}
