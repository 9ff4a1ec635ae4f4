package models

import "time"

// SensorReading is one telemetry sample (sensor_readings table). Absent values are nil, never zero.
type SensorReading struct {
	ID           int64     `db:"id"`
	DeviceID     string    `db:"device_id"`
	Timestamp    time.Time `db:"timestamp"`
	PH           *float64  `db:"ph"`
	Turbidity    *float64  `db:"turbidity"`
	Temperature  *float64  `db:"temperature"`
	WaterQuality *string   `db:"water_quality"`
	WifiRSSI     *int      `db:"wifi_rssi"`
	Uptime       *int64    `db:"uptime"`
}

// SensorValues are the channels a reading carries.
type SensorValues struct {
	PH          *float64 `json:"ph"`
	Turbidity   *float64 `json:"turbidity"`
	Temperature *float64 `json:"temperature"`
}

// DeviceStatus is the link/health block reported alongside sensor values.
type DeviceStatus struct {
	WaterQuality *string `json:"water_quality"`
	WifiRSSI     *int    `json:"wifi_rssi"`
	Uptime       *int64  `json:"uptime"`
}

// Values returns the sensor channels of the reading.
func (r *SensorReading) Values() SensorValues {
	return SensorValues{PH: r.PH, Turbidity: r.Turbidity, Temperature: r.Temperature}
}

// ToJSON returns the nested wire form with explicit nulls for absent values.
func (r *SensorReading) ToJSON() map[string]any {
	return map[string]any{
		"id":        r.ID,
		"device_id": r.DeviceID,
		"timestamp": r.Timestamp.UTC().Format(time.RFC3339Nano),
		"sensors": SensorValues{
			PH:          r.PH,
			Turbidity:   r.Turbidity,
			Temperature: r.Temperature,
		},
		"status": DeviceStatus{
			WaterQuality: r.WaterQuality,
			WifiRSSI:     r.WifiRSSI,
			Uptime:       r.Uptime,
		},
	}
}

// TelemetryPayload is the body a device posts to /pool/data or publishes over MQTT.
type TelemetryPayload struct {
	DeviceID string        `json:"device_id"`
	Sensors  *SensorValues `json:"sensors,omitempty"`
	Status   *DeviceStatus `json:"status,omitempty"`
}

// ToReading builds the reading row for the payload. Missing blocks leave every field nil.
func (p TelemetryPayload) ToReading(now time.Time) *SensorReading {
	r := &SensorReading{DeviceID: p.DeviceID, Timestamp: now}
	if p.Sensors != nil {
		r.PH = p.Sensors.PH
		r.Turbidity = p.Sensors.Turbidity
		r.Temperature = p.Sensors.Temperature
	}
	if p.Status != nil {
		r.WaterQuality = p.Status.WaterQuality
		r.WifiRSSI = p.Status.WifiRSSI
		r.Uptime = p.Status.Uptime
	}
	return r
}

// ChannelStats is the avg/min/max of one channel over a period. Nil when the channel had no values.
type ChannelStats struct {
	Avg *float64 `json:"avg"`
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// ReadingStats aggregates readings of one device over a period.
type ReadingStats struct {
	PeriodHours   int          `json:"period_hours"`
	TotalReadings int          `json:"total_readings"`
	PH            ChannelStats `json:"ph"`
	Turbidity     ChannelStats `json:"turbidity"`
	Temperature   ChannelStats `json:"temperature"`
}
