package monitoring

import (
	"fmt"
	"time"
)

// CircuitBreakerConfig defines the configuration for circuit breakers
type CircuitBreakerConfig struct {
	MaxRequests                 uint32        `json:"max_requests"`
	Interval                    time.Duration `json:"interval"`
	Timeout                     time.Duration `json:"timeout"`
	ConsecutiveFailureThreshold int           `json:"consecutive_failure_threshold"`
}

// APIErrorType represents different types of API errors for classification
type APIErrorType string

const (
	ErrorTypeTimeout      APIErrorType = "timeout"
	ErrorTypeNetworkError APIErrorType = "network_error"
	ErrorTypeServerError  APIErrorType = "server_error"
	ErrorTypeClientError  APIErrorType = "client_error"
	ErrorTypeRejected     APIErrorType = "rejected"
	ErrorTypeUnknown      APIErrorType = "unknown"
)

// DefaultNotifierBreakerConfig is used when the configured values are unusable.
var DefaultNotifierBreakerConfig = CircuitBreakerConfig{
	MaxRequests:                 3,
	Interval:                    time.Minute,
	Timeout:                     2 * time.Minute,
	ConsecutiveFailureThreshold: 5,
}

// DefaultRequestTimeout bounds a single notification call.
const DefaultRequestTimeout = 10 * time.Second

func validateCircuitBreakerConfig(config CircuitBreakerConfig) error {
	if config.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}
	if config.ConsecutiveFailureThreshold <= 0 {
		return fmt.Errorf("consecutive_failure_threshold must be greater than 0")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if config.Interval < 0 {
		return fmt.Errorf("interval must be non-negative")
	}
	return nil
}
