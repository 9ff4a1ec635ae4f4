package evaluator

import (
	"context"
	"fmt"
	"time"

	"pool-monitor/internal/models"
)

// DefaultDedupWindow is the trailing window in which a repeated unacknowledged alert is suppressed.
const DefaultDedupWindow = 5 * time.Minute

// AlertHistory is the read side the deduplicator needs.
type AlertHistory interface {
	FindAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
}

// Deduplicator suppresses candidates that already have an open alert inside the window.
// The check is read-then-write: two concurrent ingests may both pass it.
type Deduplicator struct {
	window time.Duration
}

// NewDeduplicator creates a deduplicator. A non-positive window falls back to DefaultDedupWindow.
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Deduplicator{window: window}
}

// Window returns the configured suppression window.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}

// ShouldCreate reports whether no unacknowledged alert of alertType exists for the device
// with a timestamp strictly after now-window.
func (d *Deduplicator) ShouldCreate(ctx context.Context, history AlertHistory, deviceID, alertType string, now time.Time) (bool, error) {
	recent, err := history.FindAlerts(ctx, models.AlertFilter{
		DeviceID:     deviceID,
		AlertType:    alertType,
		Acknowledged: false,
		Since:        now.Add(-d.window),
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up recent alerts: %w", err)
	}
	return len(recent) == 0, nil
}
