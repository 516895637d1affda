package monitoring

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/dwarvesf/payment-listener/internal/notifier"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

// CircuitBreakerNotifier wraps a platform notifier so a dead merchant site stops being hammered.
type CircuitBreakerNotifier struct {
	wrapped        notifier.INotifier
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *ExternalAPIMetrics
	logger         *logger.Logger
	requestTimeout time.Duration
}

func NewCircuitBreakerNotifier(wrapped notifier.INotifier, config CircuitBreakerConfig, requestTimeout time.Duration, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerNotifier {
	if err := validateCircuitBreakerConfig(config); err != nil {
		logger.Warn("[CircuitBreakerNotifier] invalid breaker config, using defaults", map[string]string{
			"service": wrapped.Name(),
			"error":   err.Error(),
		})
		config = DefaultNotifierBreakerConfig
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	cb := &CircuitBreakerNotifier{
		wrapped:        wrapped,
		metrics:        metrics,
		logger:         logger,
		requestTimeout: requestTimeout,
	}

	name := wrapped.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState(name, to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	metrics.UpdateCircuitBreakerState(name, gobreaker.StateClosed)
	return cb
}

func (cb *CircuitBreakerNotifier) Name() string {
	return cb.wrapped.Name()
}

func (cb *CircuitBreakerNotifier) State() gobreaker.State {
	return cb.circuitBreaker.State()
}

func (cb *CircuitBreakerNotifier) NotifyPayment(ctx context.Context, notice notifier.PaymentNotice) error {
	_, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, cb.executeWithTimeout(ctx, "notify_payment", func(ctx context.Context) error {
			return cb.wrapped.NotifyPayment(ctx, notice)
		})
	})
	return err
}

func (cb *CircuitBreakerNotifier) executeWithTimeout(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	name := cb.wrapped.Name()

	ctx, cancel := context.WithTimeout(ctx, cb.requestTimeout)
	defer cancel()

	err := fn(ctx)
	duration := time.Since(start).Seconds()

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cb.metrics.RecordTimeout(name, operation)
		cb.logError(name, operation, duration, err)
		return errors.Wrap(err, "timeout")
	}

	status := "success"
	if err != nil {
		status = "error"
		cb.logError(name, operation, duration, err)
	}
	cb.metrics.RecordAPICall(name, operation, status, duration)
	return err
}

func (cb *CircuitBreakerNotifier) logError(service, operation string, duration float64, err error) {
	cb.logger.Error("External API call failed", map[string]string{
		"service":    service,
		"operation":  operation,
		"duration":   strconv.FormatFloat(duration, 'f', 3, 64),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   cb.circuitBreaker.State().String(),
	})
}

// classifyError classifies errors into different types for metrics and logging
func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "timeout"),
		strings.Contains(errMsg, "deadline exceeded"),
		strings.Contains(errMsg, "context canceled"):
		return ErrorTypeTimeout
	case strings.Contains(errMsg, "connection"),
		strings.Contains(errMsg, "network"),
		strings.Contains(errMsg, "unreachable"),
		strings.Contains(errMsg, "no such host"):
		return ErrorTypeNetworkError
	case strings.Contains(errMsg, "status 5"):
		return ErrorTypeServerError
	case strings.Contains(errMsg, "status 4"):
		return ErrorTypeClientError
	case strings.Contains(errMsg, "rejected"),
		strings.Contains(errMsg, "graphql error"),
		strings.Contains(errMsg, "shopify:"):
		return ErrorTypeRejected
	}

	return ErrorTypeUnknown
}
