package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pool-monitor/internal/models"
)

const readingColumns = `id, device_id, timestamp, ph, turbidity, temperature, water_quality, wifi_rssi, uptime`

type PostgresReadingsRepo struct {
	db DBTX
}

func NewPostgresReadingsRepo(db DBTX) *PostgresReadingsRepo {
	return &PostgresReadingsRepo{db: db}
}

func scanReading(s scanner) (*models.SensorReading, error) {
	var (
		r                          models.SensorReading
		ph, turbidity, temperature sql.NullFloat64
		waterQuality               sql.NullString
		wifiRSSI, uptime           sql.NullInt64
	)
	if err := s.Scan(&r.ID, &r.DeviceID, &r.Timestamp, &ph, &turbidity, &temperature, &waterQuality, &wifiRSSI, &uptime); err != nil {
		return nil, err
	}
	r.PH = nullFloatPtr(ph)
	r.Turbidity = nullFloatPtr(turbidity)
	r.Temperature = nullFloatPtr(temperature)
	r.WaterQuality = nullStringPtr(waterQuality)
	r.WifiRSSI = nullIntPtr(wifiRSSI)
	r.Uptime = nullInt64Ptr(uptime)
	return &r, nil
}

func (r *PostgresReadingsRepo) InsertReading(ctx context.Context, rd *models.SensorReading) (int64, error) {
	q := `
		INSERT INTO sensor_readings (device_id, timestamp, ph, turbidity, temperature, water_quality, wifi_rssi, uptime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		rd.DeviceID, rd.Timestamp, rd.PH, rd.Turbidity, rd.Temperature, rd.WaterQuality, rd.WifiRSSI, rd.Uptime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w", err)
	}
	rd.ID = id
	return id, nil
}

func (r *PostgresReadingsRepo) ListReadings(ctx context.Context, deviceID string, since *time.Time, limit int) ([]models.SensorReading, error) {
	q := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE device_id = $1`
	args := []any{deviceID}
	if since != nil {
		q += ` AND timestamp >= $2`
		args = append(args, *since)
	}
	q += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	out := []models.SensorReading{}
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		out = append(out, *rd)
	}
	return out, rows.Err()
}

func (r *PostgresReadingsRepo) LatestReading(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	q := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE device_id = $1 ORDER BY timestamp DESC LIMIT 1`
	rd, err := scanReading(r.db.QueryRowContext(ctx, q, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("readings for device %s: %w", deviceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	return rd, nil
}

func (r *PostgresReadingsRepo) ReadingStats(ctx context.Context, deviceID string, since time.Time) (*models.ReadingStats, error) {
	q := `
		SELECT
			COUNT(*),
			AVG(ph), MIN(ph), MAX(ph),
			AVG(turbidity), MIN(turbidity), MAX(turbidity),
			AVG(temperature), MIN(temperature), MAX(temperature)
		FROM sensor_readings
		WHERE device_id = $1 AND timestamp >= $2`

	var (
		total                     int
		phAvg, phMin, phMax       sql.NullFloat64
		turbAvg, turbMin, turbMax sql.NullFloat64
		tempAvg, tempMin, tempMax sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, q, deviceID, since).Scan(
		&total,
		&phAvg, &phMin, &phMax,
		&turbAvg, &turbMin, &turbMax,
		&tempAvg, &tempMin, &tempMax,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reading stats: %w", err)
	}

	return &models.ReadingStats{
		TotalReadings: total,
		PH:            models.ChannelStats{Avg: nullFloatPtr(phAvg), Min: nullFloatPtr(phMin), Max: nullFloatPtr(phMax)},
		Turbidity:     models.ChannelStats{Avg: nullFloatPtr(turbAvg), Min: nullFloatPtr(turbMin), Max: nullFloatPtr(turbMax)},
		Temperature:   models.ChannelStats{Avg: nullFloatPtr(tempAvg), Min: nullFloatPtr(tempMin), Max: nullFloatPtr(tempMax)},
	}, nil
}
