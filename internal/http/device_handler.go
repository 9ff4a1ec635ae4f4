package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"pool-monitor/internal/models"
	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

const devicesPath = "/api/devices"

// DeviceHandler serves /api/devices and the per-device readings, config and alerts.
type DeviceHandler struct {
	devices  *service.DeviceService
	configs  *service.ConfigService
	readings *service.ReadingService
	alerts   *service.AlertService
	logger   *zap.Logger
}

func NewDeviceHandler(
	devices *service.DeviceService,
	configs *service.ConfigService,
	readings *service.ReadingService,
	alerts *service.AlertService,
	logger *zap.Logger,
) *DeviceHandler {
	return &DeviceHandler{
		devices:  devices,
		configs:  configs,
		readings: readings,
		alerts:   alerts,
		logger:   logger,
	}
}

// ServeHTTP dispatches on the path below /api/devices.
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, devicesPath), "/")
	if rest == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.ListDevices(w, r)
		return
	}

	deviceID, sub, _ := strings.Cut(rest, "/")
	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.GetDevice(w, r, deviceID)
	case sub == "" && r.Method == http.MethodPut:
		h.UpdateDevice(w, r, deviceID)
	case sub == "readings" && r.Method == http.MethodGet:
		h.ListReadings(w, r, deviceID)
	case sub == "readings/export" && r.Method == http.MethodGet:
		h.ExportReadings(w, r, deviceID)
	case sub == "latest" && r.Method == http.MethodGet:
		h.LatestReading(w, r, deviceID)
	case sub == "config" && r.Method == http.MethodGet:
		h.GetConfig(w, r, deviceID)
	case sub == "config" && r.Method == http.MethodPut:
		h.UpdateConfig(w, r, deviceID)
	case sub == "alerts" && r.Method == http.MethodGet:
		h.ListAlerts(w, r, deviceID)
	case sub == "" || sub == "readings" || sub == "readings/export" || sub == "latest" || sub == "config" || sub == "alerts":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListDevices(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	d, err := h.devices.GetDevice(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	var u models.DeviceUpdate
	if err := readBodyJSON(r, maxBodyBytes, &u); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format")
		return
	}
	d, err := h.devices.UpdateDevice(r.Context(), deviceID, u)
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListReadings handles GET /api/devices/{id}/readings?limit=100&hours=.
func (h *DeviceHandler) ListReadings(w http.ResponseWriter, r *http.Request, deviceID string) {
	q := r.URL.Query()
	readings, err := h.readings.ListReadings(r.Context(), service.ListReadingsRequest{
		DeviceID: deviceID,
		Limit:    parseInt(q.Get("limit"), service.DefaultReadingsLimit),
		Hours:    parseInt(q.Get("hours"), 0),
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "No readings found")
		return
	}

	out := make([]map[string]any, 0, len(readings))
	for i := range readings {
		out = append(out, readings[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportReadings handles GET /api/devices/{id}/readings/export?hours=24 as an xlsx download.
func (h *DeviceHandler) ExportReadings(w http.ResponseWriter, r *http.Request, deviceID string) {
	hours := parseInt(r.URL.Query().Get("hours"), service.DefaultStatsHours)
	readings, err := h.readings.ListReadings(r.Context(), service.ListReadingsRequest{
		DeviceID: deviceID,
		Limit:    service.MaxReadingsLimit,
		Hours:    hours,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "No readings found")
		return
	}

	data, err := GenerateReadingsExport(readings)
	if err != nil {
		h.logger.Error("Failed to generate readings export", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	filename := fmt.Sprintf("readings_%s_%s.xlsx", sanitizeFilename(deviceID), time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *DeviceHandler) LatestReading(w http.ResponseWriter, r *http.Request, deviceID string) {
	reading, err := h.readings.LatestReading(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, h.logger, err, "No readings found")
		return
	}
	writeJSON(w, http.StatusOK, reading.ToJSON())
}

func (h *DeviceHandler) GetConfig(w http.ResponseWriter, r *http.Request, deviceID string) {
	cfg, err := h.configs.GetConfig(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Configuration not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg.ToDocument())
}

// UpdateConfig handles PUT /api/devices/{id}/config. Every leaf of the body is optional.
func (h *DeviceHandler) UpdateConfig(w http.ResponseWriter, r *http.Request, deviceID string) {
	var patch models.ConfigPatch
	if err := readBodyJSON(r, maxBodyBytes, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format")
		return
	}
	cfg, err := h.configs.UpdateConfig(r.Context(), deviceID, patch)
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg.ToDocument())
}

// ListAlerts handles GET /api/devices/{id}/alerts?limit=50&acknowledged=.
// acknowledged is true only for a case-insensitive "true".
func (h *DeviceHandler) ListAlerts(w http.ResponseWriter, r *http.Request, deviceID string) {
	q := r.URL.Query()
	var acknowledged *bool
	if q.Has("acknowledged") {
		ack := strings.ToLower(q.Get("acknowledged")) == "true"
		acknowledged = &ack
	}

	alerts, err := h.alerts.ListAlerts(r.Context(), deviceID, acknowledged, parseInt(q.Get("limit"), service.DefaultAlertsLimit))
	if err != nil {
		writeServiceError(w, h.logger, err, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
