package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pool-monitor/internal/models"

	"github.com/lib/pq"
)

const userColumns = `id, username, email, password_hash, role, created_at`

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

type PostgresUsersRepo struct {
	db DBTX
}

func NewPostgresUsersRepo(db DBTX) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u     models.User
		email sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Email = nullStringPtr(email)
	return &u, nil
}

func (r *PostgresUsersRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u.Username == "" {
		return 0, fmt.Errorf("username is required")
	}
	q := `
		INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return 0, fmt.Errorf("user %s: %w", u.Username, ErrConflict)
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	u.ID = id
	return id, nil
}

func (r *PostgresUsersRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
