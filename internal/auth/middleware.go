package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(tokenString string) (*Claims, error)
}

// Middleware resolves the bearer token before the handler runs and enforces the policy.
type Middleware struct {
	tokens TokenParser
	policy Policy
	logger *zap.Logger
}

// NewMiddleware creates the guard.
func NewMiddleware(tokens TokenParser, policy Policy, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, policy: policy, logger: logger}
}

// Wrap returns next guarded by the middleware.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsExempt(r) {
			// Exempt routes still see the caller when a valid token is sent.
			if claims, err := m.parse(r); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identityFromClaims(claims)))
			}
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parse(r)
		if err != nil {
			m.logger.Debug("Rejected request without valid token",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		id := identityFromClaims(claims)
		if required, ok := m.policy.RequiredRole(r); ok && !id.Role.Allows(required) {
			writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) parse(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, errors.New("authorization header is not a bearer token")
	}
	return m.tokens.Parse(strings.TrimSpace(token))
}

func identityFromClaims(c *Claims) Identity {
	role, _ := NormalizeRole(c.Role)
	return Identity{UserID: c.UserID, Username: c.Username, Role: role}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
