package evaluator

import (
	"time"

	"pool-monitor/internal/models"
)

// BuildAlert turns a surviving candidate into an unacknowledged alert row.
func BuildAlert(deviceID string, c Candidate, now time.Time) *models.Alert {
	value := c.Value
	return &models.Alert{
		DeviceID:     deviceID,
		Timestamp:    now,
		AlertType:    c.AlertType,
		Severity:     c.Severity,
		Message:      c.Message,
		Value:        &value,
		Acknowledged: false,
	}
}
