package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/payment-listener/internal/monitoring"
)

func scrape(t *testing.T, registry *prometheus.Registry) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(registry).Handler())

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMetricsHandler_ListenerMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	listenerMetrics := monitoring.NewListenerMetrics()
	listenerMetrics.MustRegister(registry)

	listenerMetrics.RecordTransfer("matched")
	listenerMetrics.RecordPayment("paid")
	listenerMetrics.SetChainHead(4200)

	w := scrape(t, registry)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `payment_listener_transfers_total{outcome="matched"} 1`)
	assert.Contains(t, body, `payment_listener_payments_processed_total{result="paid"} 1`)
	assert.Contains(t, body, "payment_listener_chain_head 4200")
	assert.Contains(t, body, "go_goroutines")

	contentType := w.Header().Get("Content-Type")
	assert.True(t,
		strings.Contains(contentType, "text/plain") ||
			strings.Contains(contentType, "application/openmetrics-text"),
		"unexpected content type %s", contentType)
}

func TestMetricsHandler_RuntimeOnly(t *testing.T) {
	w := scrape(t, prometheus.NewRegistry())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_memstats_alloc_bytes")
	assert.NotContains(t, w.Body.String(), "payment_listener_")
}

func TestMetricsHandler_HTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(registry)

	router := gin.New()
	router.Use(monitoring.HTTPMetricsMiddleware(httpMetrics))
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", NewMetricsHandler(registry).Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/healthz"`)
}
