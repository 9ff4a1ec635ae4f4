package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pool-monitor/internal/models"
)

const configColumns = `id, device_id, updated_at,
	ph_offset, ph_slope, turbidity_offset, turbidity_slope, temp_offset,
	ph_optimal, ph_acceptable, ph_critical,
	turbidity_optimal, turbidity_acceptable, turbidity_critical,
	temp_optimal, temp_acceptable, temp_critical,
	post_interval, config_interval`

type PostgresConfigsRepo struct {
	db DBTX
}

func NewPostgresConfigsRepo(db DBTX) *PostgresConfigsRepo {
	return &PostgresConfigsRepo{db: db}
}

func scanConfig(s scanner) (*models.DeviceConfig, error) {
	var c models.DeviceConfig
	err := s.Scan(
		&c.ID, &c.DeviceID, &c.UpdatedAt,
		&c.PHOffset, &c.PHSlope, &c.TurbidityOffset, &c.TurbiditySlope, &c.TempOffset,
		&c.PHOptimal, &c.PHAcceptable, &c.PHCritical,
		&c.TurbidityOptimal, &c.TurbidityAcceptable, &c.TurbidityCritical,
		&c.TempOptimal, &c.TempAcceptable, &c.TempCritical,
		&c.PostInterval, &c.ConfigInterval,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// configValues lists c's fields in configColumns order, without id.
func configValues(c *models.DeviceConfig) []any {
	return []any{
		c.DeviceID, c.UpdatedAt,
		c.PHOffset, c.PHSlope, c.TurbidityOffset, c.TurbiditySlope, c.TempOffset,
		c.PHOptimal, c.PHAcceptable, c.PHCritical,
		c.TurbidityOptimal, c.TurbidityAcceptable, c.TurbidityCritical,
		c.TempOptimal, c.TempAcceptable, c.TempCritical,
		c.PostInterval, c.ConfigInterval,
	}
}

func (r *PostgresConfigsRepo) CreateDeviceConfig(ctx context.Context, c *models.DeviceConfig) (*models.DeviceConfig, error) {
	if c.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	q := `
		INSERT INTO device_configs (
			device_id, updated_at,
			ph_offset, ph_slope, turbidity_offset, turbidity_slope, temp_offset,
			ph_optimal, ph_acceptable, ph_critical,
			turbidity_optimal, turbidity_acceptable, turbidity_critical,
			temp_optimal, temp_acceptable, temp_critical,
			post_interval, config_interval
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (device_id) DO UPDATE SET device_id = EXCLUDED.device_id
		RETURNING ` + configColumns
	out, err := scanConfig(r.db.QueryRowContext(ctx, q, configValues(c)...))
	if err != nil {
		return nil, fmt.Errorf("failed to create device config: %w", err)
	}
	return out, nil
}

func (r *PostgresConfigsRepo) FindConfigByDeviceID(ctx context.Context, deviceID string) (*models.DeviceConfig, error) {
	q := `SELECT ` + configColumns + ` FROM device_configs WHERE device_id = $1`
	c, err := scanConfig(r.db.QueryRowContext(ctx, q, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("config for device %s: %w", deviceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get device config: %w", err)
	}
	return c, nil
}

func (r *PostgresConfigsRepo) UpdateDeviceConfig(ctx context.Context, c *models.DeviceConfig) error {
	q := `
		UPDATE device_configs SET
			updated_at = $2,
			ph_offset = $3, ph_slope = $4, turbidity_offset = $5, turbidity_slope = $6, temp_offset = $7,
			ph_optimal = $8, ph_acceptable = $9, ph_critical = $10,
			turbidity_optimal = $11, turbidity_acceptable = $12, turbidity_critical = $13,
			temp_optimal = $14, temp_acceptable = $15, temp_critical = $16,
			post_interval = $17, config_interval = $18
		WHERE device_id = $1`
	res, err := r.db.ExecContext(ctx, q, configValues(c)...)
	if err != nil {
		return fmt.Errorf("failed to update device config: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("config for device %s: %w", c.DeviceID, ErrNotFound)
	}
	return nil
}
