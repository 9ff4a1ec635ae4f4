package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pool-monitor/internal/models"
)

const commandColumns = `id, device_id, dispenser1, dispenser2, dispenser3, dispenser4, status, requested_by, created_at, processed_at`

type PostgresDispenserRepo struct {
	db DBTX
}

func NewPostgresDispenserRepo(db DBTX) *PostgresDispenserRepo {
	return &PostgresDispenserRepo{db: db}
}

func scanCommand(s scanner) (*models.DispenserCommand, error) {
	var (
		c           models.DispenserCommand
		requestedBy sql.NullString
		processedAt sql.NullTime
	)
	err := s.Scan(
		&c.ID, &c.DeviceID,
		&c.Seconds[0], &c.Seconds[1], &c.Seconds[2], &c.Seconds[3],
		&c.Status, &requestedBy, &c.CreatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}
	c.RequestedBy = nullStringPtr(requestedBy)
	c.ProcessedAt = nullTimePtr(processedAt)
	return &c, nil
}

func (r *PostgresDispenserRepo) InsertCommand(ctx context.Context, c *models.DispenserCommand) (int64, error) {
	q := `
		INSERT INTO dispenser_commands (device_id, dispenser1, dispenser2, dispenser3, dispenser4, status, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		c.DeviceID, c.Seconds[0], c.Seconds[1], c.Seconds[2], c.Seconds[3], c.Status, c.RequestedBy, c.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert dispenser command: %w", err)
	}
	c.ID = id
	return id, nil
}

func (r *PostgresDispenserRepo) LatestCommand(ctx context.Context, deviceID string) (*models.DispenserCommand, error) {
	q := `SELECT ` + commandColumns + ` FROM dispenser_commands WHERE device_id = $1 ORDER BY id DESC LIMIT 1`
	c, err := scanCommand(r.db.QueryRowContext(ctx, q, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dispenser commands for %s: %w", deviceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dispenser command: %w", err)
	}
	return c, nil
}

// MarkCommandProcessed sets status processed. processed_at keeps its first value on repeat calls.
func (r *PostgresDispenserRepo) MarkCommandProcessed(ctx context.Context, id int64, at time.Time) (*models.DispenserCommand, error) {
	q := `
		UPDATE dispenser_commands
		SET status = $2, processed_at = COALESCE(processed_at, $3)
		WHERE id = $1
		RETURNING ` + commandColumns
	c, err := scanCommand(r.db.QueryRowContext(ctx, q, id, models.DispenserProcessed, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dispenser command %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to mark dispenser command: %w", err)
	}
	return c, nil
}

func (r *PostgresDispenserRepo) ListCommands(ctx context.Context, deviceID string, limit int) ([]models.DispenserCommand, error) {
	q := `SELECT ` + commandColumns + ` FROM dispenser_commands WHERE device_id = $1 ORDER BY id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispenser commands: %w", err)
	}
	defer rows.Close()

	out := []models.DispenserCommand{}
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispenser command: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
