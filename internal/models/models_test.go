package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceConfig_ApplyKeepsAbsentFields(t *testing.T) {
	cfg := NewDefaultConfig("pool-1", time.Now())

	var patch ConfigPatch
	require.NoError(t, json.Unmarshal([]byte(`{
		"calibration": {"ph_offset": 0.2},
		"thresholds": {"turbidity": {"critical": 40}},
		"intervals": {"config_interval": 30000}
	}`), &patch))
	cfg.Apply(patch)

	assert.Equal(t, 0.2, cfg.PHOffset)
	assert.Equal(t, DefaultPHSlope, cfg.PHSlope)
	assert.Equal(t, 40.0, cfg.TurbidityCritical)
	assert.Equal(t, DefaultTurbidityAcceptable, cfg.TurbidityAcceptable)
	assert.Equal(t, DefaultPHCritical, cfg.PHCritical)
	assert.Equal(t, 30000, cfg.ConfigInterval)
	assert.Equal(t, DefaultPostInterval, cfg.PostInterval)
}

func TestDeviceConfig_ApplyZeroIsAValue(t *testing.T) {
	cfg := NewDefaultConfig("pool-1", time.Now())
	zero := 0.0
	cfg.Apply(ConfigPatch{Calibration: &CalibrationPatch{TempOffset: &zero, PHSlope: &zero}})
	assert.Equal(t, 0.0, cfg.PHSlope)
}

func TestDeviceConfig_ToDocument(t *testing.T) {
	cfg := NewDefaultConfig("pool-1", time.Now())
	b, err := json.Marshal(cfg.ToDocument())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"calibration": {"ph_offset": 0, "ph_slope": 1, "turbidity_offset": 0, "turbidity_slope": 1, "temp_offset": 0},
		"thresholds": {
			"ph": {"optimal": 7.4, "acceptable": 7.8, "critical": 8.5},
			"turbidity": {"optimal": 5, "acceptable": 20, "critical": 50},
			"temperature": {"optimal": 26, "acceptable": 30, "critical": 33}
		},
		"intervals": {"post_interval": 1000, "config_interval": 60000}
	}`, string(b))
}

func TestTelemetryPayload_ToReading(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var p TelemetryPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"device_id": "pool-1",
		"sensors": {"ph": 7.2, "temperature": null},
		"status": {"wifi_rssi": -70}
	}`), &p))

	r := p.ToReading(now)
	assert.Equal(t, "pool-1", r.DeviceID)
	assert.Equal(t, now, r.Timestamp)
	require.NotNil(t, r.PH)
	assert.Equal(t, 7.2, *r.PH)
	assert.Nil(t, r.Turbidity)
	assert.Nil(t, r.Temperature)
	require.NotNil(t, r.WifiRSSI)
	assert.Equal(t, -70, *r.WifiRSSI)
	assert.Nil(t, r.Uptime)

	bare := TelemetryPayload{DeviceID: "pool-2"}.ToReading(now)
	assert.Nil(t, bare.PH)
	assert.Nil(t, bare.WaterQuality)
}

func TestSensorReading_ToJSONHasExplicitNulls(t *testing.T) {
	ph := 7.1
	r := &SensorReading{ID: 3, DeviceID: "pool-1", Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), PH: &ph}

	b, err := json.Marshal(r.ToJSON())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 3,
		"device_id": "pool-1",
		"timestamp": "2024-06-01T12:00:00Z",
		"sensors": {"ph": 7.1, "turbidity": null, "temperature": null},
		"status": {"water_quality": null, "wifi_rssi": null, "uptime": null}
	}`, string(b))
}

func TestDispenserCommand_Values(t *testing.T) {
	cmd := &DispenserCommand{Seconds: [DispenserCount]int{5, 0, 12, 0}}
	assert.False(t, cmd.IsReset())
	assert.Equal(t, map[string]string{
		"dispenser1": "5",
		"dispenser2": "0",
		"dispenser3": "12",
		"dispenser4": "0",
	}, cmd.Values())

	m := cmd.ToJSON()
	assert.Equal(t, 12, m["dispenser3"])
	assert.Nil(t, m["processed_at"])

	assert.True(t, (&DispenserCommand{}).IsReset())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleViewer))
	assert.False(t, ValidRole("root"))
	assert.False(t, ValidRole(""))
}
