package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/listener"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

// HealthHandler implements IHealthHandler interface
type HealthHandler struct {
	config           *config.AppConfig
	logger           *logger.Logger
	db               *gorm.DB
	listener         listener.IListener
	breakers         []*monitoring.CircuitBreakerNotifier
	jobStatusManager *monitoring.JobStatusManager
}

// New creates a new health handler instance
func New(config *config.AppConfig, logger *logger.Logger, db *gorm.DB, listener listener.IListener, breakers []*monitoring.CircuitBreakerNotifier, jobStatusManager *monitoring.JobStatusManager) IHealthHandler {
	return &HealthHandler{
		config:           config,
		logger:           logger,
		db:               db,
		listener:         listener,
		breakers:         breakers,
		jobStatusManager: jobStatusManager,
	}
}

// Basic handles the basic health check endpoint (/healthz)
// @Summary Basic health check
// @Description Returns basic system availability status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} BasicHealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Basic(c *gin.Context) {
	response := BasicHealthResponse{
		Message: "ok",
	}
	c.JSON(http.StatusOK, response)
}

// Database handles the database health check endpoint
// @Summary Database health check
// @Description Validates database connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/db [get]
func (h *HealthHandler) Database(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	ctx := context.Background()
	if c.Request != nil {
		ctx = c.Request.Context()
	}

	dbCheck := h.checkDatabase(ctx)
	response.Checks["database"] = dbCheck
	response.DurationMs = time.Since(start).Milliseconds()

	if dbCheck.Status == "healthy" {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// Listener handles the chain listener health check endpoint
// @Summary Chain listener health check
// @Description Reports the listener connection state and platform notifier breakers
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/listener [get]
func (h *HealthHandler) Listener(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	response.Checks["chain_listener"] = h.checkListener()
	for _, b := range h.breakers {
		response.Checks[b.Name()+"_notifier"] = checkBreaker(b.State())
	}
	response.DurationMs = time.Since(start).Milliseconds()

	// an open breaker only delays platform notifications, payments are still recorded
	response.Status = "healthy"
	statusCode := http.StatusOK
	for name, check := range response.Checks {
		if check.Status == "healthy" {
			continue
		}
		if name == "chain_listener" {
			response.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
			break
		}
		response.Status = "degraded"
	}

	c.JSON(statusCode, response)
}

func (h *HealthHandler) checkListener() HealthCheck {
	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if h.listener == nil {
		check.Status = "unhealthy"
		check.Error = "listener not available"
		return check
	}

	status := h.listener.Status()
	check.Metadata["state"] = status.State
	check.Metadata["network"] = status.Network
	check.Metadata["chain_id"] = status.ChainID
	check.Metadata["chain_head"] = status.ChainHead
	check.Metadata["pending_confirmations"] = status.PendingWatches
	check.Metadata["reconnects"] = status.Reconnects
	if status.LastEventAt != nil {
		check.Metadata["last_event_at"] = status.LastEventAt.Format(time.RFC3339)
	}

	if status.State == listener.StateActive {
		check.Status = "healthy"
	} else {
		check.Status = "unhealthy"
		check.Error = fmt.Sprintf("listener is %s", status.State)
	}
	return check
}

func checkBreaker(state gobreaker.State) HealthCheck {
	check := HealthCheck{
		Metadata: map[string]interface{}{
			"circuit_breaker": state.String(),
		},
	}
	if state == gobreaker.StateOpen {
		check.Status = "unhealthy"
		check.Error = "circuit breaker open"
	} else {
		check.Status = "healthy"
	}
	return check
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()

	check := HealthCheck{
		Metadata: make(map[string]interface{}),
	}

	if h.db == nil {
		check.Status = "unhealthy"
		check.Error = "database connection not available"
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		check.Status = "unhealthy"
		check.Error = fmt.Sprintf("failed to get underlying database: %v", err)
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		check.Status = "unhealthy"
		if pingCtx.Err() == context.DeadlineExceeded {
			check.Error = "timeout"
		} else {
			check.Error = err.Error()
		}
		check.Latency = time.Since(start).Milliseconds()
		return check
	}

	stats := sqlDB.Stats()

	check.Status = "healthy"
	check.Latency = time.Since(start).Milliseconds()
	check.Metadata["driver"] = h.db.Dialector.Name()
	check.Metadata["connection_pool"] = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open":         stats.MaxOpenConnections,
	}

	return check
}
