package httpapi

import (
	"net/http"

	"pool-monitor/internal/models"
	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

// PoolHandler serves the routes called by the pool devices.
type PoolHandler struct {
	ingest  *service.IngestService
	configs *service.ConfigService
	logger  *zap.Logger
}

func NewPoolHandler(ingest *service.IngestService, configs *service.ConfigService, logger *zap.Logger) *PoolHandler {
	return &PoolHandler{ingest: ingest, configs: configs, logger: logger}
}

// ReceiveData handles POST /pool/data.
func (h *PoolHandler) ReceiveData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var payload models.TelemetryPayload
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format")
		return
	}

	res, err := h.ingest.Ingest(r.Context(), service.SourceHTTP, payload)
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"message":    "Data received successfully",
		"reading_id": res.ReadingID,
	})
}

// GetConfig handles GET /pool/config?device_id=.
func (h *PoolHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id parameter required")
		return
	}

	cfg, err := h.configs.FetchForDevice(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Configuration not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg.ToDocument())
}
