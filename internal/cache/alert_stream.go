package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pool-monitor/internal/models"

	"github.com/go-redis/redis/v8"
)

// AlertStream appends created alerts to a Redis stream for downstream consumers.
type AlertStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewAlertStream creates a publisher. maxLen <= 0 leaves the stream untrimmed.
func NewAlertStream(client *redis.Client, stream string, maxLen int64) *AlertStream {
	return &AlertStream{client: client, stream: stream, maxLen: maxLen}
}

// Name returns the notifier name used in logs.
func (s *AlertStream) Name() string {
	return "redis_stream"
}

// NotifyAlert publishes a to the stream.
func (s *AlertStream) NotifyAlert(ctx context.Context, a models.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"alert_id":   strconv.FormatInt(a.ID, 10),
			"device_id":  a.DeviceID,
			"alert_type": a.AlertType,
			"data":       string(data),
			"timestamp":  strconv.FormatInt(time.Now().Unix(), 10),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish alert to %s: %w", s.stream, err)
	}
	return nil
}
