package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pool-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	name  string
	err   error
	calls []int64
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) NotifyAlert(_ context.Context, a models.Alert) error {
	r.calls = append(r.calls, a.ID)
	return r.err
}

func TestFanout_DeliversToAllAndCountsFailures(t *testing.T) {
	ok := &recordingNotifier{name: "ok"}
	bad := &recordingNotifier{name: "bad", err: errors.New("down")}
	f := NewFanout(zap.NewNop(), ok, nil, bad)

	assert.Equal(t, 2, f.Len())

	failed := f.PublishAlerts(context.Background(), []models.Alert{{ID: 1}, {ID: 2}})

	assert.Equal(t, 2, failed)
	assert.Equal(t, []int64{1, 2}, ok.calls)
	assert.Equal(t, []int64{1, 2}, bad.calls)
}

func TestWebhookNotifier_PostsAlert(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, zap.NewNop())
	err := n.NotifyAlert(context.Background(), models.Alert{
		ID:        5,
		DeviceID:  "pool-1",
		AlertType: models.AlertTypeTemperatureCritical,
		Message:   "Temperature is critical: 35.00°C",
	})

	require.NoError(t, err)
	assert.Equal(t, "alert.created", got.Event)
	assert.Equal(t, int64(5), got.Alert.ID)
	assert.Equal(t, "pool-1", got.Alert.DeviceID)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, zap.NewNop())
	err := n.NotifyAlert(context.Background(), models.Alert{ID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(1))
}
