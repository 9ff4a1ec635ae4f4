package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
)

// ConfigPublisher pushes a device's config to the device after it changes.
type ConfigPublisher interface {
	PublishConfig(ctx context.Context, deviceID string, doc models.ConfigDocument) error
}

// ConfigService serves calibration and threshold configuration.
type ConfigService struct {
	store     repository.Store
	publisher ConfigPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewConfigService creates the service. publisher may be nil.
func NewConfigService(store repository.Store, publisher ConfigPublisher, logger *zap.Logger) *ConfigService {
	return &ConfigService{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// FetchForDevice returns the config a device polls for, registering the device and a
// default config when either is missing.
func (s *ConfigService) FetchForDevice(ctx context.Context, deviceID string) (*models.DeviceConfig, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id parameter required", ErrInvalidRequest)
	}

	if cfg, err := s.store.Repos().Configs.FindConfigByDeviceID(ctx, deviceID); err == nil {
		return cfg, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	now := s.now().UTC()
	var (
		cfg     *models.DeviceConfig
		created bool
	)
	err := s.store.RunAtomically(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		created, cfg, err = ensureDevice(ctx, uow, deviceID, now)
		if err != nil || cfg != nil {
			return err
		}
		cfg, err = uow.Configs.CreateDeviceConfig(ctx, models.NewDefaultConfig(deviceID, now))
		if err != nil {
			return fmt.Errorf("failed to create device config: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("FetchForDevice failed", zap.String("device_id", deviceID), zap.Error(err))
		return nil, err
	}
	if created {
		s.logger.Info("Device registered on config fetch", zap.String("device_id", deviceID))
	}
	return cfg, nil
}

// GetConfig returns ErrNotFound when the device has no config.
func (s *ConfigService) GetConfig(ctx context.Context, deviceID string) (*models.DeviceConfig, error) {
	return s.store.Repos().Configs.FindConfigByDeviceID(ctx, deviceID)
}

// UpdateConfig merges patch into the device's config, creating the config first when an
// existing device has none. Returns ErrNotFound when the device does not exist.
func (s *ConfigService) UpdateConfig(ctx context.Context, deviceID string, patch models.ConfigPatch) (*models.DeviceConfig, error) {
	now := s.now().UTC()
	var cfg *models.DeviceConfig

	err := s.store.RunAtomically(ctx, func(uow *repository.UnitOfWork) error {
		// 1. Load or create
		existing, err := uow.Configs.FindConfigByDeviceID(ctx, deviceID)
		switch {
		case err == nil:
			cfg = existing
		case errors.Is(err, repository.ErrNotFound):
			if _, err := uow.Devices.FindDeviceByID(ctx, deviceID); err != nil {
				return err
			}
			cfg, err = uow.Configs.CreateDeviceConfig(ctx, models.NewDefaultConfig(deviceID, now))
			if err != nil {
				return fmt.Errorf("failed to create device config: %w", err)
			}
		default:
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. Merge
		cfg.Apply(patch)
		if err := validateConfig(cfg); err != nil {
			return err
		}
		cfg.UpdatedAt = now

		// 3. Write
		if err := uow.Configs.UpdateDeviceConfig(ctx, cfg); err != nil {
			return fmt.Errorf("failed to update device config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Device config updated", zap.String("device_id", deviceID))

	if s.publisher != nil {
		if err := s.publisher.PublishConfig(ctx, deviceID, cfg.ToDocument()); err != nil {
			s.logger.Warn("Failed to publish device config",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		}
	}
	return cfg, nil
}

func validateConfig(c *models.DeviceConfig) error {
	if c.PostInterval <= 0 {
		return fmt.Errorf("%w: post_interval must be positive", ErrInvalidRequest)
	}
	if c.ConfigInterval <= 0 {
		return fmt.Errorf("%w: config_interval must be positive", ErrInvalidRequest)
	}
	return nil
}
