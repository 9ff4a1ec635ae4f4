package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"pool-monitor/internal/models"
)

// Publisher is the publish side of Client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// ConfigPublisher publishes config documents retained, so a device gets the latest one on connect.
type ConfigPublisher struct {
	pub         Publisher
	topicFormat string
	qos         byte
}

// NewConfigPublisher creates a publisher; topicFormat takes the device_id, e.g. "pool/%s/config".
func NewConfigPublisher(pub Publisher, topicFormat string, qos byte) *ConfigPublisher {
	return &ConfigPublisher{pub: pub, topicFormat: topicFormat, qos: qos}
}

func (p *ConfigPublisher) PublishConfig(ctx context.Context, deviceID string, doc models.ConfigDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return p.pub.Publish(fmt.Sprintf(p.topicFormat, deviceID), p.qos, true, data)
}
