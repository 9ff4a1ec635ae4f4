package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pool-monitor/internal/models"
)

const alertColumns = `id, device_id, timestamp, alert_type, severity, message, value, acknowledged`

type PostgresAlertsRepo struct {
	db DBTX
}

func NewPostgresAlertsRepo(db DBTX) *PostgresAlertsRepo {
	return &PostgresAlertsRepo{db: db}
}

func scanAlert(s scanner) (*models.Alert, error) {
	var (
		a     models.Alert
		value sql.NullFloat64
	)
	if err := s.Scan(&a.ID, &a.DeviceID, &a.Timestamp, &a.AlertType, &a.Severity, &a.Message, &value, &a.Acknowledged); err != nil {
		return nil, err
	}
	a.Value = nullFloatPtr(value)
	return &a, nil
}

func collectAlerts(rows *sql.Rows) ([]models.Alert, error) {
	defer rows.Close()
	out := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// FindAlerts is the dedup lookup: alerts strictly newer than filter.Since.
func (r *PostgresAlertsRepo) FindAlerts(ctx context.Context, f models.AlertFilter) ([]models.Alert, error) {
	q := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE device_id = $1
		  AND alert_type = $2
		  AND acknowledged = $3
		  AND timestamp > $4
		ORDER BY timestamp DESC`
	rows, err := r.db.QueryContext(ctx, q, f.DeviceID, f.AlertType, f.Acknowledged, f.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to find alerts: %w", err)
	}
	return collectAlerts(rows)
}

func (r *PostgresAlertsRepo) InsertAlert(ctx context.Context, a *models.Alert) (int64, error) {
	if a.DeviceID == "" {
		return 0, fmt.Errorf("device_id is required")
	}
	if a.AlertType == "" {
		return 0, fmt.Errorf("alert_type is required")
	}
	q := `
		INSERT INTO alerts (device_id, timestamp, alert_type, severity, message, value, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		a.DeviceID, a.Timestamp, a.AlertType, a.Severity, a.Message, a.Value, a.Acknowledged,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}
	a.ID = id
	return id, nil
}

func (r *PostgresAlertsRepo) ListAlerts(ctx context.Context, deviceID string, acknowledged *bool, limit int) ([]models.Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE device_id = $1`
	args := []any{deviceID}
	if acknowledged != nil {
		q += ` AND acknowledged = $2`
		args = append(args, *acknowledged)
	}
	q += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return collectAlerts(rows)
}

func (r *PostgresAlertsRepo) GetAlert(ctx context.Context, id int64) (*models.Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// AcknowledgeAlert sets acknowledged. Acknowledging twice is a no-op that returns the alert.
func (r *PostgresAlertsRepo) AcknowledgeAlert(ctx context.Context, id int64) (*models.Alert, error) {
	q := `UPDATE alerts SET acknowledged = TRUE WHERE id = $1 RETURNING ` + alertColumns
	a, err := scanAlert(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return a, nil
}
