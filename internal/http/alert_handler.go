package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

// AlertHandler serves alert acknowledgment and reading statistics.
type AlertHandler struct {
	alerts   *service.AlertService
	readings *service.ReadingService
	logger   *zap.Logger
}

func NewAlertHandler(alerts *service.AlertService, readings *service.ReadingService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, readings: readings, logger: logger}
}

// Acknowledge handles POST /api/alerts/{id}/acknowledge.
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	idStr, ok := strings.CutSuffix(rest, "/acknowledge")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}

	alert, err := h.alerts.Acknowledge(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// Stats handles GET /api/stats/{id}?hours=24.
func (h *AlertHandler) Stats(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimPrefix(r.URL.Path, "/api/stats/")
	if deviceID == "" || strings.Contains(deviceID, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	hours := parseInt(r.URL.Query().Get("hours"), service.DefaultStatsHours)
	stats, err := h.readings.Stats(r.Context(), deviceID, hours)
	if err != nil {
		writeServiceError(w, h.logger, err, "No data available")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
