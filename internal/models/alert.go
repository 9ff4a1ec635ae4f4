package models

import "time"

// Alert types and severities
const (
	AlertTypePHCritical          = "ph_critical"
	AlertTypeTurbidityCritical   = "turbidity_critical"
	AlertTypeTemperatureCritical = "temperature_critical"

	SeverityCritical = "critical"
)

// Alert is a persisted threshold alert (alerts table).
// Acknowledged starts false and only ever flips to true.
type Alert struct {
	ID           int64     `json:"id" db:"id"`
	DeviceID     string    `json:"device_id" db:"device_id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	AlertType    string    `json:"alert_type" db:"alert_type"`
	Severity     string    `json:"severity" db:"severity"`
	Message      string    `json:"message" db:"message"`
	Value        *float64  `json:"value" db:"value"`
	Acknowledged bool      `json:"acknowledged" db:"acknowledged"`
}

// AlertFilter selects alerts for the dedup lookup.
type AlertFilter struct {
	DeviceID     string
	AlertType    string
	Acknowledged bool
	Since        time.Time // exclusive
}
