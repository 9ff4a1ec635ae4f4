package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

const (
	apiName    = "Pool Water Quality Monitor API"
	apiVersion = "1.0.0"
)

// Router uses the standard library http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler, e.g. the metrics exporter.
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterPoolRoutes registers the routes the pool devices call.
func (r *Router) RegisterPoolRoutes(h *PoolHandler) {
	r.Handle("/pool/data", h.ReceiveData)
	r.Handle("/pool/config", h.GetConfig)
}

// RegisterDeviceRoutes registers /api/devices and everything under a device.
func (r *Router) RegisterDeviceRoutes(h *DeviceHandler) {
	r.HandleHandler("/api/devices", h)
	r.HandleHandler("/api/devices/", h)
}

// RegisterAlertRoutes registers alert acknowledgment and statistics.
func (r *Router) RegisterAlertRoutes(h *AlertHandler) {
	r.Handle("/api/alerts/", h.Acknowledge)
	r.Handle("/api/stats/", h.Stats)
}

func (r *Router) RegisterDispenserRoutes(h *DispenserHandler) {
	r.Handle("/api/dispenser/get", h.Get)
	r.Handle("/api/dispenser/set", h.Set)
	r.Handle("/api/dispenser/reset", h.Reset)
	r.Handle("/api/dispenser/ack", h.Ack)
	r.Handle("/api/dispenser/history", h.History)
}

func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/api/auth/register", h.Register)
	r.Handle("/api/auth/login", h.Login)
	r.Handle("/api/auth/me", h.Me)
	r.Handle("/api/users", h.ListUsers)
}

// RegisterSystemRoutes registers the API descriptor, liveness and metrics.
func (r *Router) RegisterSystemRoutes(metricsHandler http.Handler) {
	r.Handle("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    apiName,
			"version": apiVersion,
			"endpoints": map[string]string{
				"device_data":       "/pool/data (POST)",
				"device_config":     "/pool/config (GET)",
				"devices":           "/api/devices (GET)",
				"device_readings":   "/api/devices/<device_id>/readings (GET)",
				"device_alerts":     "/api/devices/<device_id>/alerts (GET)",
				"device_stats":      "/api/stats/<device_id> (GET)",
				"dispenser_get":     "/api/dispenser/get (GET)",
				"dispenser_set":     "/api/dispenser/set (POST)",
				"dispenser_reset":   "/api/dispenser/reset (POST)",
				"readings_export":   "/api/devices/<device_id>/readings/export (GET)",
				"alert_acknowledge": "/api/alerts/<alert_id>/acknowledge (POST)",
			},
		})
	})

	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metricsHandler != nil {
		r.HandleHandler("/metrics", metricsHandler)
	}
}
