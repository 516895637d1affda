package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/handler/health"
	"github.com/dwarvesf/payment-listener/internal/handler/metrics"
	"github.com/dwarvesf/payment-listener/internal/handler/order"
	"github.com/dwarvesf/payment-listener/internal/listener"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/store"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

type Handler struct {
	OrderHandler   order.IHandler
	HealthHandler  health.IHealthHandler
	MetricsHandler *metrics.MetricsHandler
}

// Deps groups what the HTTP surface reads from the running service.
type Deps struct {
	DB               *gorm.DB
	Store            *store.Store
	Listener         listener.IListener
	Breakers         []*monitoring.CircuitBreakerNotifier
	JobStatusManager *monitoring.JobStatusManager
	Registry         *prometheus.Registry
}

func New(appConfig *config.AppConfig, logger *logger.Logger, deps Deps) *Handler {
	return &Handler{
		OrderHandler:   order.New(deps.DB, deps.Store, logger),
		HealthHandler:  health.New(appConfig, logger, deps.DB, deps.Listener, deps.Breakers, deps.JobStatusManager),
		MetricsHandler: metrics.NewMetricsHandler(deps.Registry),
	}
}
