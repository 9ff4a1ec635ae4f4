package auth

import (
	"net/http"
	"strings"
)

// Role is a dashboard permission level.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// NormalizeRole lower-cases role and reports whether it is known.
func NormalizeRole(role string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(role)))
	_, ok := roleRank[r]
	return r, ok
}

// Allows reports whether r grants at least the required role.
func (r Role) Allows(required Role) bool {
	return roleRank[r] >= roleRank[required] && roleRank[r] > 0
}

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewPolicy builds a policy with exemptions.
func NewPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// NewDefaultPolicy exempts the device-facing routes, login/registration and the
// operational endpoints. Devices hold no credentials.
func NewDefaultPolicy() Policy {
	return NewPolicy(
		[]string{
			"/",
			"/healthz",
			"/metrics",
			"/api/auth/register",
			"/api/auth/login",
			"/api/dispenser/get",
			"/api/dispenser/ack",
		},
		[]string{"/pool/"},
	)
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if r.Method == http.MethodOptions {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves required role for the request.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/users" || strings.HasPrefix(path, "/api/users/"):
		return RoleAdmin, true
	case path == "/api/auth/me":
		return RoleViewer, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead {
			return RoleViewer, true
		}
		return RoleOperator, true
	}
	return "", false
}
