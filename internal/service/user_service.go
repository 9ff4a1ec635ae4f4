package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64, username, role string) (string, time.Time, error)
}

// UserService manages dashboard accounts.
type UserService struct {
	store  repository.Store
	tokens TokenIssuer
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(store repository.Store, tokens TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{store: store, tokens: tokens, logger: logger, now: time.Now}
}

// RegisterRequest creates an account. Role is honored only when the caller is an admin.
type RegisterRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email,omitempty"`
	Role     string  `json:"role,omitempty"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register creates an account. The first account becomes admin; later accounts are
// viewers unless an admin caller names another role.
func (s *UserService) Register(ctx context.Context, req RegisterRequest, callerRole string) (*models.User, error) {
	// 1. Validate
	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidRequest, minUsernameLen, maxUsernameLen)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, minPasswordLen)
	}
	if req.Role != "" && !models.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, req.Role)
	}
	if req.Role != "" && req.Role != models.RoleViewer && callerRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins can assign roles", ErrForbidden)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	// 2. Create
	err = s.store.RunAtomically(ctx, func(uow *repository.UnitOfWork) error {
		existing, err := uow.Users.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		switch {
		case len(existing) == 0:
			user.Role = models.RoleAdmin
		case req.Role != "":
			user.Role = req.Role
		default:
			user.Role = models.RoleViewer
		}
		id, err := uow.Users.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		user.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", user.Role),
	)
	return user, nil
}

// Login checks the password and issues a token. Unknown users and wrong passwords both
// return ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.tokens == nil {
		return nil, errors.New("token issuance is not configured")
	}

	user, err := s.store.Repos().Users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("Login rejected", zap.String("username", user.Username))
		return nil, ErrUnauthorized
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser returns ErrNotFound for an unknown id.
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.Repos().Users.GetUser(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Repos().Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SeedAdmin creates an admin account at startup unless the username is taken.
func (s *UserService) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	_, err := s.store.Repos().Users.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to find user: %w", err)
	}

	_, err = s.Register(ctx, RegisterRequest{Username: username, Password: password, Role: models.RoleAdmin}, models.RoleAdmin)
	if err != nil && !errors.Is(err, ErrConflict) {
		return fmt.Errorf("failed to seed admin %s: %w", username, err)
	}
	return nil
}
