package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// ExternalAPIMetrics covers calls to merchant platforms
type ExternalAPIMetrics struct {
	apiDuration         *prometheus.HistogramVec
	apiCalls            *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	timeouts            *prometheus.CounterVec
}

func NewExternalAPIMetrics() *ExternalAPIMetrics {
	return &ExternalAPIMetrics{
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_listener_external_api_duration_seconds",
				Help:    "Duration of external API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api_name", "endpoint", "status"},
		),
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_listener_external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api_name", "status"},
		),
		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "payment_listener_circuit_breaker_state",
				Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"api_name"},
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_listener_external_api_timeouts_total",
				Help: "Total number of external API timeouts",
			},
			[]string{"api_name", "timeout_type"},
		),
	}
}

func (m *ExternalAPIMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.apiDuration,
		m.apiCalls,
		m.circuitBreakerState,
		m.timeouts,
	)
}

func (m *ExternalAPIMetrics) RecordAPICall(apiName, endpoint, status string, duration float64) {
	m.apiDuration.WithLabelValues(apiName, endpoint, status).Observe(duration)
	m.apiCalls.WithLabelValues(apiName, status).Inc()
}

func (m *ExternalAPIMetrics) UpdateCircuitBreakerState(apiName string, state gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(apiName).Set(float64(state))
}

func (m *ExternalAPIMetrics) RecordTimeout(apiName, timeoutType string) {
	m.timeouts.WithLabelValues(apiName, timeoutType).Inc()
}

// ListenerMetrics tracks the transfer pipeline from chain event to paid order.
type ListenerMetrics struct {
	transfersObserved *prometheus.CounterVec
	paymentsProcessed *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	reconnects        prometheus.Counter
	chainHead         prometheus.Gauge
	pendingWatches    prometheus.Gauge
	listenerState     *prometheus.GaugeVec
	ordersExpired     prometheus.Counter
	cacheOperations   *prometheus.CounterVec
}

func NewListenerMetrics() *ListenerMetrics {
	return &ListenerMetrics{
		transfersObserved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_listener_transfers_total",
				Help: "Transfer events seen on chain by outcome (matched, unmatched, duplicate)",
			},
			[]string{"outcome"},
		),
		paymentsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_listener_payments_processed_total",
				Help: "Confirmed payments handed to the processor by result",
			},
			[]string{"result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_listener_platform_notifications_total",
				Help: "Platform notifications by platform and status",
			},
			[]string{"platform", "status"},
		),
		reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payment_listener_reconnects_total",
				Help: "Number of chain connection teardowns followed by a reconnect",
			},
		),
		chainHead: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "payment_listener_chain_head",
				Help: "Latest block height reported by the node",
			},
		),
		pendingWatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "payment_listener_pending_confirmations",
				Help: "Payments waiting for confirmation depth",
			},
		),
		listenerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "payment_listener_state",
				Help: "1 for the current listener state, 0 otherwise",
			},
			[]string{"state"},
		),
		ordersExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payment_listener_orders_expired_total",
				Help: "Direct orders moved to EXPIRED by the sweep job",
			},
		),
		cacheOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_listener_cache_operations_total",
				Help: "Total number of cache lookups",
			},
			[]string{"cache_type", "operation"},
		),
	}
}

func (m *ListenerMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.transfersObserved,
		m.paymentsProcessed,
		m.notifications,
		m.reconnects,
		m.chainHead,
		m.pendingWatches,
		m.listenerState,
		m.ordersExpired,
		m.cacheOperations,
	)
}

func (m *ListenerMetrics) RecordTransfer(outcome string) {
	m.transfersObserved.WithLabelValues(outcome).Inc()
}

func (m *ListenerMetrics) RecordPayment(result string) {
	m.paymentsProcessed.WithLabelValues(result).Inc()
}

func (m *ListenerMetrics) RecordNotification(platform, status string) {
	m.notifications.WithLabelValues(platform, status).Inc()
}

func (m *ListenerMetrics) RecordReconnect() {
	m.reconnects.Inc()
}

func (m *ListenerMetrics) SetChainHead(height uint64) {
	m.chainHead.Set(float64(height))
}

func (m *ListenerMetrics) SetPendingWatches(n int) {
	m.pendingWatches.Set(float64(n))
}

func (m *ListenerMetrics) AddExpiredOrders(n int64) {
	m.ordersExpired.Add(float64(n))
}

// RecordCacheOperation counts a cache lookup; operation is hit or miss.
func (m *ListenerMetrics) RecordCacheOperation(cacheType, operation string) {
	m.cacheOperations.WithLabelValues(cacheType, operation).Inc()
}

// SetState flips the state gauge so exactly one label value reads 1.
func (m *ListenerMetrics) SetState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.listenerState.WithLabelValues(s).Set(v)
	}
}
