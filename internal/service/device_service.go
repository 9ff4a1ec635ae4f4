package service

import (
	"context"
	"fmt"
	"strings"

	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
)

// DeviceService lists and edits registered devices.
type DeviceService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewDeviceService(store repository.Store, logger *zap.Logger) *DeviceService {
	return &DeviceService{store: store, logger: logger}
}

// ListDevices returns every registered device.
func (s *DeviceService) ListDevices(ctx context.Context) ([]models.Device, error) {
	devices, err := s.store.Repos().Devices.ListDevices(ctx)
	if err != nil {
		s.logger.Error("ListDevices failed", zap.Error(err))
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// GetDevice returns ErrNotFound for an unknown device.
func (s *DeviceService) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	return s.store.Repos().Devices.FindDeviceByID(ctx, deviceID)
}

// UpdateDevice applies a partial update of name and location.
func (s *DeviceService) UpdateDevice(ctx context.Context, deviceID string, u models.DeviceUpdate) (*models.Device, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidRequest)
	}
	if u.IsEmpty() {
		return s.GetDevice(ctx, deviceID)
	}

	d, err := s.store.Repos().Devices.UpdateDevice(ctx, deviceID, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Device updated", zap.String("device_id", deviceID))
	return d, nil
}
