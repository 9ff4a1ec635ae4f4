package httpapi

import (
	"fmt"
	"net/http"

	"pool-monitor/internal/auth"
	"pool-monitor/internal/models"
	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

// DispenserHandler serves the chemical dispenser endpoints. The unit polls get and
// acknowledges with ack; the dashboard writes with set and reset.
type DispenserHandler struct {
	dispenser *service.DispenserService
	logger    *zap.Logger
}

func NewDispenserHandler(dispenser *service.DispenserService, logger *zap.Logger) *DispenserHandler {
	return &DispenserHandler{dispenser: dispenser, logger: logger}
}

func (h *DispenserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	values, err := h.dispenser.Current(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "No dispenser command")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// Set handles POST /api/dispenser/set with {"dispenser1": "5", ...}.
func (h *DispenserHandler) Set(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	body := map[string]any{}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format")
		return
	}
	seconds, err := service.ParseDispenserValues(body)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if v, ok := body["device_id"].(string); ok && v != "" {
		deviceID = v
	}

	cmd, err := h.dispenser.Set(r.Context(), deviceID, seconds, requestedBy(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}
	writeCommand(w, cmd, "Dispenser values updated")
}

func (h *DispenserHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	cmd, err := h.dispenser.Reset(r.Context(), r.URL.Query().Get("device_id"), requestedBy(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "Device not found")
		return
	}
	writeCommand(w, cmd, "Dispenser values reset")
}

// Ack handles POST /api/dispenser/ack from the unit once it has run the pending command.
func (h *DispenserHandler) Ack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	cmd, err := h.dispenser.Ack(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "No pending dispenser command")
		return
	}
	writeCommand(w, cmd, fmt.Sprintf("Dispenser command %d processed", cmd.ID))
}

func (h *DispenserHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	cmds, err := h.dispenser.History(r.Context(), q.Get("device_id"), parseInt(q.Get("limit"), service.DefaultDispenserHistory))
	if err != nil {
		writeServiceError(w, h.logger, err, "No dispenser command")
		return
	}

	out := make([]map[string]any, 0, len(cmds))
	for i := range cmds {
		out = append(out, cmds[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, out)
}

func writeCommand(w http.ResponseWriter, cmd *models.DispenserCommand, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": message,
		"command": cmd.ToJSON(),
	})
}

func requestedBy(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return id.Username
	}
	return ""
}
