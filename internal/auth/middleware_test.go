package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) (http.Handler, *Identity) {
	t.Helper()
	seen := &Identity{}
	mw := NewMiddleware(NewTokenManager(testSecret, time.Hour), NewDefaultPolicy(), zap.NewNop())
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			*seen = id
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, seen
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, resp.Body.String())
}

func TestAuthMiddleware_DeviceRoutesExempt(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, target := range []string{"/pool/data", "/pool/config?device_id=a", "/api/dispenser/get", "/api/auth/login", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code, target)
	}
}

func TestAuthMiddleware_ViewerCanRead(t *testing.T) {
	handler, seen := newTestHandler(t)
	token := mustToken(t, testSecret, "alice", "viewer", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/devices/pool-1/readings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice", seen.Username)
	assert.Equal(t, RoleViewer, seen.Role)
}

func TestAuthMiddleware_ViewerForbiddenWrite(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := mustToken(t, testSecret, "alice", "viewer", time.Hour)

	req := httptest.NewRequest(http.MethodPut, "/api/devices/pool-1/config", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAuthMiddleware_OperatorForbiddenUsers(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := mustToken(t, testSecret, "bob", "operator", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := mustToken(t, testSecret, "alice", "admin", -time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := mustToken(t, "other-secret", "alice", "admin", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestTokenManager_IssueParse(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, expiresAt, err := m.Issue(7, "carol", "operator")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "carol", claims.Username)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	_, _, err := m.Issue(1, "dave", "root")
	assert.Error(t, err)

	_, err = m.Parse(mustToken(t, testSecret, "dave", "root", time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherAlgorithm(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	claims := Claims{Username: "eve", Role: "admin"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRole_Allows(t *testing.T) {
	assert.True(t, RoleAdmin.Allows(RoleOperator))
	assert.True(t, RoleOperator.Allows(RoleOperator))
	assert.False(t, RoleViewer.Allows(RoleOperator))
	assert.False(t, Role("").Allows(RoleViewer))
}

func mustToken(t *testing.T, secret, username, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID:   1,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
