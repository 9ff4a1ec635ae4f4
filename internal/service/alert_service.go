package service

import (
	"context"
	"fmt"

	"pool-monitor/internal/metrics"
	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
)

const DefaultAlertsLimit = 50

// AlertService lists and acknowledges alerts.
type AlertService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewAlertService(store repository.Store, logger *zap.Logger) *AlertService {
	return &AlertService{store: store, logger: logger}
}

// ListAlerts returns alerts newest first. A nil acknowledged returns both states.
func (s *AlertService) ListAlerts(ctx context.Context, deviceID string, acknowledged *bool, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = DefaultAlertsLimit
	}
	alerts, err := s.store.Repos().Alerts.ListAlerts(ctx, deviceID, acknowledged, limit)
	if err != nil {
		s.logger.Error("ListAlerts failed", zap.String("device_id", deviceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// Acknowledge marks an alert acknowledged. Acknowledging twice is a no-op; an
// acknowledged alert never reverts.
func (s *AlertService) Acknowledge(ctx context.Context, id int64) (*models.Alert, error) {
	var (
		alert   *models.Alert
		changed bool
	)
	err := s.store.RunAtomically(ctx, func(uow *repository.UnitOfWork) error {
		current, err := uow.Alerts.GetAlert(ctx, id)
		if err != nil {
			return err
		}
		if current.Acknowledged {
			alert = current
			return nil
		}
		alert, err = uow.Alerts.AcknowledgeAlert(ctx, id)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.IncAlertAcknowledged()
		s.logger.Info("Alert acknowledged",
			zap.Int64("alert_id", id),
			zap.String("device_id", alert.DeviceID),
			zap.String("alert_type", alert.AlertType),
		)
	}
	return alert, nil
}
