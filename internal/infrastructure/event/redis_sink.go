package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultActivityStream is the stream records go to when none is configured
const DefaultActivityStream = "mfg:activity"

// RedisStreamSink appends records to a capped Redis stream
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink writing to stream, trimmed to roughly maxLen entries
func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = DefaultActivityStream
	}
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Record XADDs rec
func (s *RedisStreamSink) Record(ctx context.Context, rec ActivityRecord) error {
	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode activity properties: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id":       rec.EventID,
			"event_name":     rec.EventName,
			"aggregate_type": rec.AggregateType,
			"aggregate_id":   strconv.FormatInt(rec.AggregateID, 10),
			"description":    rec.Description,
			"actor":          rec.Actor,
			"properties":     string(props),
			"occurred_at":    rec.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append activity to stream %s: %w", s.stream, err)
	}
	return nil
}

var _ ActivitySink = (*RedisStreamSink)(nil)
