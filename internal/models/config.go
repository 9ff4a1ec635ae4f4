package models

import "time"

// Default calibration, thresholds and intervals for a newly registered device.
const (
	DefaultPHOffset        = 0.0
	DefaultPHSlope         = 1.0
	DefaultTurbidityOffset = 0.0
	DefaultTurbiditySlope  = 1.0
	DefaultTempOffset      = 0.0

	DefaultPHOptimal    = 7.4
	DefaultPHAcceptable = 7.8
	DefaultPHCritical   = 8.5

	DefaultTurbidityOptimal    = 5.0
	DefaultTurbidityAcceptable = 20.0
	DefaultTurbidityCritical   = 50.0

	DefaultTempOptimal    = 26.0
	DefaultTempAcceptable = 30.0
	DefaultTempCritical   = 33.0

	DefaultPostInterval   = 1000  // ms
	DefaultConfigInterval = 60000 // ms
)

// DeviceConfig holds calibration and alert thresholds for one device (device_configs table).
type DeviceConfig struct {
	ID        int64     `db:"id"`
	DeviceID  string    `db:"device_id"`
	UpdatedAt time.Time `db:"updated_at"`

	PHOffset        float64 `db:"ph_offset"`
	PHSlope         float64 `db:"ph_slope"`
	TurbidityOffset float64 `db:"turbidity_offset"`
	TurbiditySlope  float64 `db:"turbidity_slope"`
	TempOffset      float64 `db:"temp_offset"`

	PHOptimal    float64 `db:"ph_optimal"`
	PHAcceptable float64 `db:"ph_acceptable"`
	PHCritical   float64 `db:"ph_critical"`

	TurbidityOptimal    float64 `db:"turbidity_optimal"`
	TurbidityAcceptable float64 `db:"turbidity_acceptable"`
	TurbidityCritical   float64 `db:"turbidity_critical"`

	TempOptimal    float64 `db:"temp_optimal"`
	TempAcceptable float64 `db:"temp_acceptable"`
	TempCritical   float64 `db:"temp_critical"`

	PostInterval   int `db:"post_interval"`
	ConfigInterval int `db:"config_interval"`
}

// NewDefaultConfig returns the configuration paired with a new device.
func NewDefaultConfig(deviceID string, now time.Time) *DeviceConfig {
	return &DeviceConfig{
		DeviceID:  deviceID,
		UpdatedAt: now,

		PHOffset:        DefaultPHOffset,
		PHSlope:         DefaultPHSlope,
		TurbidityOffset: DefaultTurbidityOffset,
		TurbiditySlope:  DefaultTurbiditySlope,
		TempOffset:      DefaultTempOffset,

		PHOptimal:    DefaultPHOptimal,
		PHAcceptable: DefaultPHAcceptable,
		PHCritical:   DefaultPHCritical,

		TurbidityOptimal:    DefaultTurbidityOptimal,
		TurbidityAcceptable: DefaultTurbidityAcceptable,
		TurbidityCritical:   DefaultTurbidityCritical,

		TempOptimal:    DefaultTempOptimal,
		TempAcceptable: DefaultTempAcceptable,
		TempCritical:   DefaultTempCritical,

		PostInterval:   DefaultPostInterval,
		ConfigInterval: DefaultConfigInterval,
	}
}

// ThresholdTier is the optimal/acceptable/critical triple of one channel.
type ThresholdTier struct {
	Optimal    float64 `json:"optimal"`
	Acceptable float64 `json:"acceptable"`
	Critical   float64 `json:"critical"`
}

// Calibration is the calibration block served to devices.
type Calibration struct {
	PHOffset        float64 `json:"ph_offset"`
	PHSlope         float64 `json:"ph_slope"`
	TurbidityOffset float64 `json:"turbidity_offset"`
	TurbiditySlope  float64 `json:"turbidity_slope"`
	TempOffset      float64 `json:"temp_offset"`
}

// Thresholds groups the per-channel tiers.
type Thresholds struct {
	PH          ThresholdTier `json:"ph"`
	Turbidity   ThresholdTier `json:"turbidity"`
	Temperature ThresholdTier `json:"temperature"`
}

// Intervals are device timing settings in milliseconds.
type Intervals struct {
	PostInterval   int `json:"post_interval"`
	ConfigInterval int `json:"config_interval"`
}

// ConfigDocument is the wire form of a DeviceConfig, shared by the device and dashboard routes.
type ConfigDocument struct {
	Calibration Calibration `json:"calibration"`
	Thresholds  Thresholds  `json:"thresholds"`
	Intervals   Intervals   `json:"intervals"`
}

// ToDocument converts the flat row into the nested wire document.
func (c *DeviceConfig) ToDocument() ConfigDocument {
	return ConfigDocument{
		Calibration: Calibration{
			PHOffset:        c.PHOffset,
			PHSlope:         c.PHSlope,
			TurbidityOffset: c.TurbidityOffset,
			TurbiditySlope:  c.TurbiditySlope,
			TempOffset:      c.TempOffset,
		},
		Thresholds: Thresholds{
			PH:          ThresholdTier{Optimal: c.PHOptimal, Acceptable: c.PHAcceptable, Critical: c.PHCritical},
			Turbidity:   ThresholdTier{Optimal: c.TurbidityOptimal, Acceptable: c.TurbidityAcceptable, Critical: c.TurbidityCritical},
			Temperature: ThresholdTier{Optimal: c.TempOptimal, Acceptable: c.TempAcceptable, Critical: c.TempCritical},
		},
		Intervals: Intervals{
			PostInterval:   c.PostInterval,
			ConfigInterval: c.ConfigInterval,
		},
	}
}

// TierPatch is a partial ThresholdTier.
type TierPatch struct {
	Optimal    *float64 `json:"optimal,omitempty"`
	Acceptable *float64 `json:"acceptable,omitempty"`
	Critical   *float64 `json:"critical,omitempty"`
}

// CalibrationPatch is a partial Calibration.
type CalibrationPatch struct {
	PHOffset        *float64 `json:"ph_offset,omitempty"`
	PHSlope         *float64 `json:"ph_slope,omitempty"`
	TurbidityOffset *float64 `json:"turbidity_offset,omitempty"`
	TurbiditySlope  *float64 `json:"turbidity_slope,omitempty"`
	TempOffset      *float64 `json:"temp_offset,omitempty"`
}

// ThresholdsPatch is a partial Thresholds.
type ThresholdsPatch struct {
	PH          *TierPatch `json:"ph,omitempty"`
	Turbidity   *TierPatch `json:"turbidity,omitempty"`
	Temperature *TierPatch `json:"temperature,omitempty"`
}

// IntervalsPatch is a partial Intervals.
type IntervalsPatch struct {
	PostInterval   *int `json:"post_interval,omitempty"`
	ConfigInterval *int `json:"config_interval,omitempty"`
}

// ConfigPatch is a partial ConfigDocument; every leaf is optional.
type ConfigPatch struct {
	Calibration *CalibrationPatch `json:"calibration,omitempty"`
	Thresholds  *ThresholdsPatch  `json:"thresholds,omitempty"`
	Intervals   *IntervalsPatch   `json:"intervals,omitempty"`
}

// Apply merges the patch into c. Absent fields keep their current value.
func (c *DeviceConfig) Apply(p ConfigPatch) {
	if cal := p.Calibration; cal != nil {
		setFloat(&c.PHOffset, cal.PHOffset)
		setFloat(&c.PHSlope, cal.PHSlope)
		setFloat(&c.TurbidityOffset, cal.TurbidityOffset)
		setFloat(&c.TurbiditySlope, cal.TurbiditySlope)
		setFloat(&c.TempOffset, cal.TempOffset)
	}
	if th := p.Thresholds; th != nil {
		applyTier(th.PH, &c.PHOptimal, &c.PHAcceptable, &c.PHCritical)
		applyTier(th.Turbidity, &c.TurbidityOptimal, &c.TurbidityAcceptable, &c.TurbidityCritical)
		applyTier(th.Temperature, &c.TempOptimal, &c.TempAcceptable, &c.TempCritical)
	}
	if iv := p.Intervals; iv != nil {
		if iv.PostInterval != nil {
			c.PostInterval = *iv.PostInterval
		}
		if iv.ConfigInterval != nil {
			c.ConfigInterval = *iv.ConfigInterval
		}
	}
}

func applyTier(t *TierPatch, optimal, acceptable, critical *float64) {
	if t == nil {
		return
	}
	setFloat(optimal, t.Optimal)
	setFloat(acceptable, t.Acceptable)
	setFloat(critical, t.Critical)
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
