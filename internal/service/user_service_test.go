package service

import (
	"context"
	"testing"
	"time"

	"pool-monitor/internal/auth"
	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserService(store repository.Store) (*UserService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(store, tokens, zap.NewNop()), tokens
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	svc, _ := newUserService(repository.NewMemoryStore())
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterRequest{Username: "owner", Password: "pool-secret"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.NotEqual(t, "pool-secret", first.PasswordHash)

	second, err := svc.Register(ctx, RegisterRequest{Username: "guest", Password: "pool-secret"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, second.Role)
}

func TestRegister_RoleAssignment(t *testing.T) {
	svc, _ := newUserService(repository.NewMemoryStore())
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Username: "owner", Password: "pool-secret"}, "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Username: "sneaky", Password: "pool-secret", Role: models.RoleAdmin}, "")
	assert.ErrorIs(t, err, ErrForbidden)

	op, err := svc.Register(ctx, RegisterRequest{Username: "tech", Password: "pool-secret", Role: models.RoleOperator}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, op.Role)

	_, err = svc.Register(ctx, RegisterRequest{Username: "odd", Password: "pool-secret", Role: "root"}, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newUserService(repository.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Username: "ab", Password: "pool-secret"}, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Register(ctx, RegisterRequest{Username: "owner", Password: "short"}, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Register(ctx, RegisterRequest{Username: "owner", Password: "pool-secret"}, "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Username: "owner", Password: "pool-secret"}, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, tokens := newUserService(repository.NewMemoryStore())
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterRequest{Username: "owner", Password: "pool-secret"}, "")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "owner", "pool-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.Login(ctx, "owner", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody", "pool-secret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	svc, _ := newUserService(store)
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmin(ctx, "admin", "change-me-now"))
	require.NoError(t, svc.SeedAdmin(ctx, "admin", "change-me-now"))
	require.NoError(t, svc.SeedAdmin(ctx, "", ""))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
}
