package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pool-monitor/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("already exists")
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// --- Devices ---

type DevicesRepo interface {
	FindDeviceByID(ctx context.Context, deviceID string) (*models.Device, error)
	// CreateDevice inserts d, or returns the existing row when the device_id is already registered.
	CreateDevice(ctx context.Context, d *models.Device) (*models.Device, error)
	TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error
	ListDevices(ctx context.Context) ([]models.Device, error)
	UpdateDevice(ctx context.Context, deviceID string, u models.DeviceUpdate) (*models.Device, error)
}

// --- Configs ---

type ConfigsRepo interface {
	// CreateDeviceConfig inserts c, or returns the existing row when the device already has one.
	CreateDeviceConfig(ctx context.Context, c *models.DeviceConfig) (*models.DeviceConfig, error)
	FindConfigByDeviceID(ctx context.Context, deviceID string) (*models.DeviceConfig, error)
	UpdateDeviceConfig(ctx context.Context, c *models.DeviceConfig) error
}

// --- Readings ---

type ReadingsRepo interface {
	InsertReading(ctx context.Context, r *models.SensorReading) (int64, error)
	// ListReadings returns newest first. A nil since means no lower bound.
	ListReadings(ctx context.Context, deviceID string, since *time.Time, limit int) ([]models.SensorReading, error)
	LatestReading(ctx context.Context, deviceID string) (*models.SensorReading, error)
	// ReadingStats aggregates readings with timestamp >= since. TotalReadings is 0 when there are none.
	ReadingStats(ctx context.Context, deviceID string, since time.Time) (*models.ReadingStats, error)
}

// --- Alerts ---

type AlertsRepo interface {
	FindAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
	InsertAlert(ctx context.Context, a *models.Alert) (int64, error)
	// ListAlerts returns newest first. A nil acknowledged means both states.
	ListAlerts(ctx context.Context, deviceID string, acknowledged *bool, limit int) ([]models.Alert, error)
	GetAlert(ctx context.Context, id int64) (*models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id int64) (*models.Alert, error)
}

// --- Users ---

type UsersRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// --- Dispenser ---

type DispenserRepo interface {
	InsertCommand(ctx context.Context, c *models.DispenserCommand) (int64, error)
	LatestCommand(ctx context.Context, deviceID string) (*models.DispenserCommand, error)
	MarkCommandProcessed(ctx context.Context, id int64, at time.Time) (*models.DispenserCommand, error)
	ListCommands(ctx context.Context, deviceID string, limit int) ([]models.DispenserCommand, error)
}

// UnitOfWork bundles the repositories bound to one connection or transaction.
type UnitOfWork struct {
	Devices   DevicesRepo
	Configs   ConfigsRepo
	Readings  ReadingsRepo
	Alerts    AlertsRepo
	Users     UsersRepo
	Dispenser DispenserRepo
}

// Store gives access to the repositories outside and inside a transaction.
type Store interface {
	// Repos returns repositories that run each call on its own.
	Repos() *UnitOfWork
	// RunAtomically runs fn in one transaction: committed if fn returns nil, rolled back otherwise.
	RunAtomically(ctx context.Context, fn func(uow *UnitOfWork) error) error
}
