package httpapi

import (
	"net/http"

	"pool-monitor/internal/auth"
	"pool-monitor/internal/service"

	"go.uber.org/zap"
)

// AuthHandler serves account registration, login and user listing.
type AuthHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

func NewAuthHandler(users *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req service.RegisterRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format")
		return
	}

	user, err := h.users.Register(r.Context(), req, string(auth.RoleFromContext(r.Context())))
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data format")
		return
	}

	res, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Me returns the account behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	user, err := h.users.GetUser(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
