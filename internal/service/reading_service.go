package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pool-monitor/internal/cache"
	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultReadingsLimit = 100
	MaxReadingsLimit     = 10000
	DefaultStatsHours    = 24
)

// ReadingService answers reading history, latest and statistics queries.
type ReadingService struct {
	store  repository.Store
	cache  ReadingCache
	logger *zap.Logger
	now    func() time.Time
}

// NewReadingService creates the service. cache may be nil.
func NewReadingService(store repository.Store, cache ReadingCache, logger *zap.Logger) *ReadingService {
	return &ReadingService{store: store, cache: cache, logger: logger, now: time.Now}
}

// ListReadingsRequest selects readings of one device.
type ListReadingsRequest struct {
	DeviceID string
	Limit    int // default 100
	Hours    int // 0 means no time filter
}

// ListReadings returns readings newest first.
func (s *ReadingService) ListReadings(ctx context.Context, req ListReadingsRequest) ([]models.SensorReading, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultReadingsLimit
	}
	if limit > MaxReadingsLimit {
		limit = MaxReadingsLimit
	}

	var since *time.Time
	if req.Hours > 0 {
		t := s.now().UTC().Add(-time.Duration(req.Hours) * time.Hour)
		since = &t
	}

	readings, err := s.store.Repos().Readings.ListReadings(ctx, req.DeviceID, since, limit)
	if err != nil {
		s.logger.Error("ListReadings failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	return readings, nil
}

// LatestReading serves from the cache when possible and fills it on a miss.
// Returns ErrNotFound when the device has no readings.
func (s *ReadingService) LatestReading(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	if s.cache != nil {
		r, err := s.cache.GetLatest(ctx, deviceID)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Latest reading cache lookup failed", zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	r, err := s.store.Repos().Readings.LatestReading(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, r); err != nil {
			s.logger.Warn("Failed to fill latest reading cache", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return r, nil
}

// Stats aggregates the last hours of readings. Returns ErrNotFound when there are none.
func (s *ReadingService) Stats(ctx context.Context, deviceID string, hours int) (*models.ReadingStats, error) {
	if hours <= 0 {
		hours = DefaultStatsHours
	}
	since := s.now().UTC().Add(-time.Duration(hours) * time.Hour)

	stats, err := s.store.Repos().Readings.ReadingStats(ctx, deviceID, since)
	if err != nil {
		s.logger.Error("ReadingStats failed", zap.String("device_id", deviceID), zap.Error(err))
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	if stats.TotalReadings == 0 {
		return nil, fmt.Errorf("readings of %s: %w", deviceID, ErrNotFound)
	}
	stats.PeriodHours = hours
	return stats, nil
}
