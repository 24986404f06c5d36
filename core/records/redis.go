package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/leadbot/core/logger"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "leadbot:records"

// RedisStream publishes records to a Redis stream for downstream CRM consumers.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStream appends to stream, trimming it to roughly maxLen entries when maxLen > 0.
func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// Append implements Sink.
func (s *RedisStream) Append(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.Stamp(time.Now())
	values, err := streamValues(r)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{Stream: s.stream, Values: values}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	entryID, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		logger.Error(ctx, "records", "record.xadd",
			slog.String("record_kind", string(r.Kind)),
			slog.String("record_id", r.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("records: xadd %s: %w", s.stream, err)
	}
	logger.Debug(ctx, "records", "record.xadd",
		slog.String("record_kind", string(r.Kind)),
		slog.String("record_id", r.ID.String()),
		slog.String("entry", entryID),
	)
	return nil
}

// streamValues flattens a record into stream entry fields. The full record rides in "payload".
func streamValues(r Record) (map[string]any, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("records: encode: %w", err)
	}
	return map[string]any{
		"id":      r.ID.String(),
		"kind":    string(r.Kind),
		"tenant":  r.TenantID,
		"payload": string(payload),
	}, nil
}

// Close closes the client.
func (s *RedisStream) Close() error {
	return s.client.Close()
}
