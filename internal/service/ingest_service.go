package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pool-monitor/internal/evaluator"
	"pool-monitor/internal/metrics"
	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
)

// Ingest sources, used as a metrics label.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// ReadingCache keeps the latest reading per device.
type ReadingCache interface {
	SetLatest(ctx context.Context, r *models.SensorReading) error
	GetLatest(ctx context.Context, deviceID string) (*models.SensorReading, error)
}

// AlertPublisher delivers committed alerts and returns the number of failed deliveries.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []models.Alert) int
}

// IngestResult is what one ingestion created.
type IngestResult struct {
	ReadingID     int64
	Reading       *models.SensorReading
	Alerts        []models.Alert
	DeviceCreated bool
}

// IngestService runs the ingestion pipeline: device upsert, reading insert, threshold
// evaluation, dedup and alert insert in one unit of work.
type IngestService struct {
	store     repository.Store
	dedup     *evaluator.Deduplicator
	cache     ReadingCache
	publisher AlertPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewIngestService creates the pipeline. cache and publisher may be nil.
func NewIngestService(store repository.Store, dedup *evaluator.Deduplicator, cache ReadingCache, publisher AlertPublisher, logger *zap.Logger) *IngestService {
	if dedup == nil {
		dedup = evaluator.NewDeduplicator(evaluator.DefaultDedupWindow)
	}
	return &IngestService{
		store:     store,
		dedup:     dedup,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest stores one telemetry payload and creates the alerts it calls for.
// Nothing is persisted when an error is returned.
func (s *IngestService) Ingest(ctx context.Context, source string, payload models.TelemetryPayload) (*IngestResult, error) {
	start := time.Now()

	// 1. Validate
	payload.DeviceID = strings.TrimSpace(payload.DeviceID)
	if payload.DeviceID == "" {
		metrics.ObserveIngest(source, metrics.ResultInvalid, time.Since(start))
		return nil, ErrInvalidPayload
	}

	now := s.now().UTC()
	deviceID := payload.DeviceID
	var (
		result     *IngestResult
		suppressed []string
	)

	// 2. Unit of work
	err := s.store.RunAtomically(ctx, func(uow *repository.UnitOfWork) error {
		result = &IngestResult{}
		suppressed = suppressed[:0]

		created, cfg, err := ensureDevice(ctx, uow, deviceID, now)
		if err != nil {
			return err
		}
		result.DeviceCreated = created

		if err := uow.Devices.TouchLastSeen(ctx, deviceID, now); err != nil {
			return fmt.Errorf("failed to update last_seen: %w", err)
		}

		reading := payload.ToReading(now)
		id, err := uow.Readings.InsertReading(ctx, reading)
		if err != nil {
			return fmt.Errorf("failed to insert reading: %w", err)
		}
		reading.ID = id
		result.ReadingID = id
		result.Reading = reading

		if cfg == nil {
			return nil
		}

		for _, c := range evaluator.Evaluate(reading.Values(), cfg) {
			ok, err := s.dedup.ShouldCreate(ctx, uow.Alerts, deviceID, c.AlertType, now)
			if err != nil {
				return err
			}
			if !ok {
				suppressed = append(suppressed, c.AlertType)
				continue
			}
			alert := evaluator.BuildAlert(deviceID, c, now)
			alertID, err := uow.Alerts.InsertAlert(ctx, alert)
			if err != nil {
				return fmt.Errorf("failed to insert alert: %w", err)
			}
			alert.ID = alertID
			result.Alerts = append(result.Alerts, *alert)
		}
		return nil
	})
	if err != nil {
		metrics.ObserveIngest(source, metrics.ResultError, time.Since(start))
		s.logger.Error("Ingest failed",
			zap.String("device_id", deviceID),
			zap.String("source", source),
			zap.Error(err),
		)
		return nil, err
	}

	// 3. Post-commit side effects
	s.afterCommit(ctx, result, suppressed)
	metrics.ObserveIngest(source, metrics.ResultSuccess, time.Since(start))

	s.logger.Debug("Reading ingested",
		zap.String("device_id", deviceID),
		zap.String("source", source),
		zap.Int64("reading_id", result.ReadingID),
		zap.Int("alerts", len(result.Alerts)),
		zap.Bool("device_created", result.DeviceCreated),
	)
	return result, nil
}

func (s *IngestService) afterCommit(ctx context.Context, result *IngestResult, suppressed []string) {
	for _, alertType := range suppressed {
		metrics.IncAlertSuppressed(alertType)
	}
	for _, a := range result.Alerts {
		metrics.IncAlertCreated(a.AlertType)
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, result.Reading); err != nil {
			s.logger.Warn("Failed to cache latest reading",
				zap.String("device_id", result.Reading.DeviceID),
				zap.Error(err),
			)
		}
	}

	if s.publisher != nil && len(result.Alerts) > 0 {
		if failed := s.publisher.PublishAlerts(ctx, result.Alerts); failed > 0 {
			s.logger.Warn("Some alert notifications failed",
				zap.String("device_id", result.Reading.DeviceID),
				zap.Int("failed", failed),
			)
		}
	}
}

// ensureDevice returns the device's config, registering the device together with a
// default config on first contact. cfg is nil when an existing device has no config.
func ensureDevice(ctx context.Context, uow *repository.UnitOfWork, deviceID string, now time.Time) (bool, *models.DeviceConfig, error) {
	_, err := uow.Devices.FindDeviceByID(ctx, deviceID)
	switch {
	case err == nil:
		cfg, err := uow.Configs.FindConfigByDeviceID(ctx, deviceID)
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil, nil
		}
		if err != nil {
			return false, nil, fmt.Errorf("failed to load config: %w", err)
		}
		return false, cfg, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, nil, fmt.Errorf("failed to find device: %w", err)
	}

	if _, err := uow.Devices.CreateDevice(ctx, models.NewDevice(deviceID, now)); err != nil {
		return false, nil, fmt.Errorf("failed to create device: %w", err)
	}
	cfg, err := uow.Configs.CreateDeviceConfig(ctx, models.NewDefaultConfig(deviceID, now))
	if err != nil {
		return false, nil, fmt.Errorf("failed to create device config: %w", err)
	}
	return true, cfg, nil
}
