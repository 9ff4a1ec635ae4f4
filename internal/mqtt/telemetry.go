package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pool-monitor/internal/models"
	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

// Ingester runs one payload through the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, source string, payload models.TelemetryPayload) (*service.IngestResult, error)
}

// TelemetryHandler feeds messages from pool/{device_id}/data into the ingestion pipeline.
type TelemetryHandler struct {
	ingester Ingester
	timeout  time.Duration
	logger   *zap.Logger
}

func NewTelemetryHandler(ingester Ingester, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{ingester: ingester, timeout: 10 * time.Second, logger: logger}
}

// HandleMessage decodes the /pool/data body. device_id falls back to the topic segment.
func (h *TelemetryHandler) HandleMessage(topic string, payload []byte) error {
	var p models.TelemetryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if strings.TrimSpace(p.DeviceID) == "" {
		p.DeviceID = DeviceIDFromTopic(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	res, err := h.ingester.Ingest(ctx, service.SourceMQTT, p)
	if err != nil {
		return err
	}

	h.logger.Debug("MQTT reading ingested",
		zap.String("topic", topic),
		zap.String("device_id", p.DeviceID),
		zap.Int64("reading_id", res.ReadingID),
		zap.Int("alerts", len(res.Alerts)),
	)
	return nil
}

// DeviceIDFromTopic returns the segment before the last one: "pool/abc/data" -> "abc".
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}
