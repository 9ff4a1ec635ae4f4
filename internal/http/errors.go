package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

// writeServiceError maps service errors to status codes. notFound is the route-specific
// 404 message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "Invalid data format")
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, detail(err, service.ErrInvalidRequest))
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, detail(err, service.ErrForbidden))
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "Already exists")
	default:
		logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// detail strips the sentinel prefix: "invalid request: device_id parameter required" -> "device_id parameter required".
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}
