package evaluator

import (
	"pool-monitor/internal/models"
)

// Candidate is an alert the thresholds call for, before dedup and persistence.
type Candidate struct {
	AlertType string
	Severity  string
	Message   string
	Value     float64
}

// Evaluate checks each channel against cfg and returns the candidates in channel order:
// pH, turbidity, temperature. It performs no I/O.
func Evaluate(values models.SensorValues, cfg *models.DeviceConfig) []Candidate {
	if cfg == nil {
		return nil
	}

	var candidates []Candidate

	// 1. pH
	if c, ok := evaluatePH(values.PH, cfg); ok {
		candidates = append(candidates, c)
	}

	// 2. Turbidity
	if c, ok := evaluateTurbidity(values.Turbidity, cfg); ok {
		candidates = append(candidates, c)
	}

	// 3. Temperature
	if c, ok := evaluateTemperature(values.Temperature, cfg); ok {
		candidates = append(candidates, c)
	}

	return candidates
}
