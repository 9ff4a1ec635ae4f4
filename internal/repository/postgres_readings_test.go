package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"pool-monitor/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var readingRowColumns = []string{"id", "device_id", "timestamp", "ph", "turbidity", "temperature", "water_quality", "wifi_rssi", "uptime"}

func setupMockReadingsDB(t *testing.T) (sqlmock.Sqlmock, *PostgresReadingsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewPostgresReadingsRepo(db)
}

func TestPostgresReadingsRepo_InsertReading_NullsForAbsentFields(t *testing.T) {
	mock, repo := setupMockReadingsDB(t)
	now := time.Now().UTC()
	ph := 7.2

	mock.ExpectQuery(`INSERT INTO sensor_readings`).
		WithArgs("pool-1", now, 7.2, nil, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	rd := &models.SensorReading{DeviceID: "pool-1", Timestamp: now, PH: &ph}
	id, err := repo.InsertReading(context.Background(), rd)

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), rd.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadingsRepo_ListReadings_WithSince(t *testing.T) {
	mock, repo := setupMockReadingsDB(t)
	now := time.Now().UTC()
	since := now.Add(-2 * time.Hour)

	mock.ExpectQuery(`FROM sensor_readings WHERE device_id = \$1 AND timestamp >= \$2 ORDER BY timestamp DESC LIMIT \$3`).
		WithArgs("pool-1", since, 100).
		WillReturnRows(sqlmock.NewRows(readingRowColumns).
			AddRow(int64(2), "pool-1", now, 7.3, 4.1, 27.5, "optimal", int64(-61), int64(3600)).
			AddRow(int64(1), "pool-1", now.Add(-time.Hour), nil, nil, nil, nil, nil, nil))

	readings, err := repo.ListReadings(context.Background(), "pool-1", &since, 100)

	require.NoError(t, err)
	require.Len(t, readings, 2)
	require.NotNil(t, readings[0].WifiRSSI)
	assert.Equal(t, -61, *readings[0].WifiRSSI)
	assert.Nil(t, readings[1].PH)
	assert.Nil(t, readings[1].WaterQuality)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadingsRepo_LatestReading_NotFound(t *testing.T) {
	mock, repo := setupMockReadingsDB(t)

	mock.ExpectQuery(`ORDER BY timestamp DESC LIMIT 1`).
		WithArgs("pool-1").
		WillReturnRows(sqlmock.NewRows(readingRowColumns))

	_, err := repo.LatestReading(context.Background(), "pool-1")

	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadingsRepo_ReadingStats(t *testing.T) {
	mock, repo := setupMockReadingsDB(t)
	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)`).
		WithArgs("pool-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "a1", "b1", "c1", "a2", "b2", "c2", "a3", "b3", "c3"}).
			AddRow(int64(3), 7.5, 7.2, 7.8, nil, nil, nil, 27.0, 26.0, 28.0))

	stats, err := repo.ReadingStats(context.Background(), "pool-1", since)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalReadings)
	require.NotNil(t, stats.PH.Avg)
	assert.Equal(t, 7.5, *stats.PH.Avg)
	assert.Nil(t, stats.Turbidity.Avg)
	assert.Nil(t, stats.Turbidity.Max)
	assert.Equal(t, 28.0, *stats.Temperature.Max)
	require.NoError(t, mock.ExpectationsWereMet())
}
