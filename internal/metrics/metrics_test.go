package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	Init(nil)
	Init(nil) // second call is a no-op

	before := testutil.ToFloat64(alertsCreated.WithLabelValues("ph_critical"))
	IncAlertCreated("ph_critical")
	assert.Equal(t, before+1, testutil.ToFloat64(alertsCreated.WithLabelValues("ph_critical")))

	before = testutil.ToFloat64(ingestRequests.WithLabelValues("http", ResultSuccess))
	ObserveIngest("http", "", 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ingestRequests.WithLabelValues("http", ResultSuccess)))

	IncAlertSuppressed("ph_critical")
	IncAlertAcknowledged()
	IncDispenserCommand("set")
	ObserveHTTP(http.MethodGet, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pool_monitor_alerts_created_total"))
	assert.True(t, strings.Contains(body, "pool_monitor_alerts_suppressed_total"))
	assert.True(t, strings.Contains(body, "pool_monitor_http_requests_total"))
}
