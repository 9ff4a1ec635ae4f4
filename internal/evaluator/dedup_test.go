package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"pool-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAlertHistory is a testify mock of AlertHistory.
type MockAlertHistory struct {
	mock.Mock
}

func (m *MockAlertHistory) FindAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

// sliceHistory applies the lookup rules over an in-memory list.
type sliceHistory []models.Alert

func (h sliceHistory) FindAlerts(_ context.Context, f models.AlertFilter) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range h {
		if a.DeviceID == f.DeviceID && a.AlertType == f.AlertType &&
			a.Acknowledged == f.Acknowledged && a.Timestamp.After(f.Since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestNewDeduplicator_DefaultWindow(t *testing.T) {
	assert.Equal(t, 5*time.Minute, NewDeduplicator(0).Window())
	assert.Equal(t, time.Minute, NewDeduplicator(time.Minute).Window())
}

func TestShouldCreate_QueriesUnacknowledgedWithinWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := new(MockAlertHistory)

	history.On("FindAlerts", ctx, models.AlertFilter{
		DeviceID:     "pool-1",
		AlertType:    models.AlertTypePHCritical,
		Acknowledged: false,
		Since:        now.Add(-5 * time.Minute),
	}).Return([]models.Alert{}, nil)

	ok, err := NewDeduplicator(0).ShouldCreate(ctx, history, "pool-1", models.AlertTypePHCritical, now)

	require.NoError(t, err)
	assert.True(t, ok)
	history.AssertExpectations(t)
}

func TestShouldCreate_SuppressesInsideWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := sliceHistory{
		{DeviceID: "pool-1", AlertType: models.AlertTypePHCritical, Timestamp: now.Add(-2 * time.Minute)},
	}
	d := NewDeduplicator(0)

	ok, err := d.ShouldCreate(context.Background(), history, "pool-1", models.AlertTypePHCritical, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// other type and other device are unaffected
	ok, err = d.ShouldCreate(context.Background(), history, "pool-1", models.AlertTypeTurbidityCritical, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.ShouldCreate(context.Background(), history, "pool-2", models.AlertTypePHCritical, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldCreate_WindowSlidesWithNow(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := sliceHistory{
		{DeviceID: "pool-1", AlertType: models.AlertTypePHCritical, Timestamp: created},
	}
	d := NewDeduplicator(0)

	ok, err := d.ShouldCreate(context.Background(), history, "pool-1", models.AlertTypePHCritical, created.Add(4*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	// exactly at the boundary the old alert is no longer strictly inside the window
	ok, err = d.ShouldCreate(context.Background(), history, "pool-1", models.AlertTypePHCritical, created.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldCreate_IgnoresAcknowledged(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := sliceHistory{
		{DeviceID: "pool-1", AlertType: models.AlertTypePHCritical, Timestamp: now.Add(-time.Minute), Acknowledged: true},
	}

	ok, err := NewDeduplicator(0).ShouldCreate(context.Background(), history, "pool-1", models.AlertTypePHCritical, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldCreate_PropagatesLookupError(t *testing.T) {
	history := new(MockAlertHistory)
	history.On("FindAlerts", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	ok, err := NewDeduplicator(0).ShouldCreate(context.Background(), history, "pool-1", models.AlertTypePHCritical, time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, ok)
}
