package notify

import (
	"context"

	"pool-monitor/internal/models"

	"go.uber.org/zap"
)

// Notifier delivers a created alert to one destination.
type Notifier interface {
	Name() string
	NotifyAlert(ctx context.Context, a models.Alert) error
}

// Fanout sends each alert to every notifier. A failing notifier is logged and does not
// stop delivery to the others.
type Fanout struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewFanout creates a fan-out over notifiers; nil entries are skipped.
func NewFanout(logger *zap.Logger, notifiers ...Notifier) *Fanout {
	f := &Fanout{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Len returns the number of configured notifiers.
func (f *Fanout) Len() int {
	return len(f.notifiers)
}

// PublishAlerts delivers alerts in order and returns the number of failed deliveries.
func (f *Fanout) PublishAlerts(ctx context.Context, alerts []models.Alert) int {
	failed := 0
	for _, a := range alerts {
		for _, n := range f.notifiers {
			if err := n.NotifyAlert(ctx, a); err != nil {
				failed++
				f.logger.Warn("Alert notification failed",
					zap.String("notifier", n.Name()),
					zap.Int64("alert_id", a.ID),
					zap.String("device_id", a.DeviceID),
					zap.Error(err),
				)
			}
		}
	}
	return failed
}
