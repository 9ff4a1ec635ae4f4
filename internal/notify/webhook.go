package notify

import (
	"context"
	"fmt"
	"time"

	"pool-monitor/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookPayload is the JSON body posted for each alert.
type WebhookPayload struct {
	Event  string       `json:"event"`
	Alert  models.Alert `json:"alert"`
	SentAt time.Time    `json:"sent_at"`
}

// WebhookNotifier posts alerts to an HTTP endpoint.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "pool-monitor")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) NotifyAlert(ctx context.Context, a models.Alert) error {
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetBody(WebhookPayload{Event: "alert.created", Alert: a, SentAt: time.Now().UTC()}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	w.logger.Debug("Alert webhook delivered",
		zap.Int64("alert_id", a.ID),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}
