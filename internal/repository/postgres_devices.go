package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pool-monitor/internal/models"
)

const deviceColumns = `id, device_id, name, location, registered_at, last_seen`

type PostgresDevicesRepo struct {
	db DBTX
}

func NewPostgresDevicesRepo(db DBTX) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db}
}

func scanDevice(s scanner) (*models.Device, error) {
	var (
		d        models.Device
		location sql.NullString
	)
	if err := s.Scan(&d.ID, &d.DeviceID, &d.Name, &location, &d.RegisteredAt, &d.LastSeen); err != nil {
		return nil, err
	}
	d.Location = nullStringPtr(location)
	return &d, nil
}

func (r *PostgresDevicesRepo) FindDeviceByID(ctx context.Context, deviceID string) (*models.Device, error) {
	q := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, q, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

func (r *PostgresDevicesRepo) CreateDevice(ctx context.Context, d *models.Device) (*models.Device, error) {
	if d.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	// The no-op update makes RETURNING yield the existing row on conflict.
	q := `
		INSERT INTO devices (device_id, name, location, registered_at, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO UPDATE SET device_id = EXCLUDED.device_id
		RETURNING ` + deviceColumns
	out, err := scanDevice(r.db.QueryRowContext(ctx, q,
		d.DeviceID, d.Name, d.Location, d.RegisteredAt, d.LastSeen,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return out, nil
}

func (r *PostgresDevicesRepo) TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE devices SET last_seen = $2 WHERE device_id = $1`, deviceID, at)
	if err != nil {
		return fmt.Errorf("failed to update last_seen: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

func (r *PostgresDevicesRepo) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	out := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *PostgresDevicesRepo) UpdateDevice(ctx context.Context, deviceID string, u models.DeviceUpdate) (*models.Device, error) {
	if u.IsEmpty() {
		return r.FindDeviceByID(ctx, deviceID)
	}

	set := []string{}
	args := []any{deviceID}
	argN := 2
	if u.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", argN))
		args = append(args, *u.Name)
		argN++
	}
	if u.Location != nil {
		set = append(set, fmt.Sprintf("location = $%d", argN))
		args = append(args, *u.Location)
	}

	q := `UPDATE devices SET ` + strings.Join(set, ", ") + ` WHERE device_id = $1 RETURNING ` + deviceColumns
	d, err := scanDevice(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update device: %w", err)
	}
	return d, nil
}
