package evaluator

import (
	"fmt"

	"pool-monitor/internal/models"
)

// Margins below the optimal value that still count as acceptable.
const (
	phLowMargin          = 1.0
	temperatureLowMargin = 4.0
)

// present reports whether a channel value takes part in evaluation.
// An exact 0.0 counts as absent, matching how firmware readings have always been treated.
func present(v *float64) (float64, bool) {
	if v == nil || *v == 0 {
		return 0, false
	}
	return *v, true
}

func evaluatePH(v *float64, cfg *models.DeviceConfig) (Candidate, bool) {
	ph, ok := present(v)
	if !ok {
		return Candidate{}, false
	}
	if ph < cfg.PHOptimal-phLowMargin || ph > cfg.PHCritical {
		return Candidate{
			AlertType: models.AlertTypePHCritical,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("pH level is critical: %.2f", ph),
			Value:     ph,
		}, true
	}
	return Candidate{}, false
}

func evaluateTurbidity(v *float64, cfg *models.DeviceConfig) (Candidate, bool) {
	turbidity, ok := present(v)
	if !ok {
		return Candidate{}, false
	}
	if turbidity > cfg.TurbidityCritical {
		return Candidate{
			AlertType: models.AlertTypeTurbidityCritical,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Turbidity level is critical: %.2f NTU", turbidity),
			Value:     turbidity,
		}, true
	}
	return Candidate{}, false
}

func evaluateTemperature(v *float64, cfg *models.DeviceConfig) (Candidate, bool) {
	temperature, ok := present(v)
	if !ok {
		return Candidate{}, false
	}
	if temperature < cfg.TempOptimal-temperatureLowMargin || temperature > cfg.TempCritical {
		return Candidate{
			AlertType: models.AlertTypeTemperatureCritical,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Temperature is critical: %.2f°C", temperature),
			Value:     temperature,
		}, true
	}
	return Candidate{}, false
}
