package server

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/dwarvesf/payment-listener/internal/chainfeed"
	"github.com/dwarvesf/payment-listener/internal/confirmation"
	"github.com/dwarvesf/payment-listener/internal/expiry"
	"github.com/dwarvesf/payment-listener/internal/handler"
	"github.com/dwarvesf/payment-listener/internal/listener"
	"github.com/dwarvesf/payment-listener/internal/matcher"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/notifier"
	"github.com/dwarvesf/payment-listener/internal/processor"
	"github.com/dwarvesf/payment-listener/internal/store"
	pgstore "github.com/dwarvesf/payment-listener/internal/store/postgres"
	"github.com/dwarvesf/payment-listener/internal/transport/http"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
	"github.com/dwarvesf/payment-listener/internal/utils/webhook"
)

const (
	expiryJobTimeout = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)
	defer logger.Sync()

	if err := appConfig.Validate(); err != nil {
		logger.Fatal("[server][Init] invalid configuration", map[string]string{
			"error": err.Error(),
		})
	}

	db := pgstore.New(appConfig, logger)
	s := store.New()

	registry := prometheus.NewRegistry()
	listenerMetrics := monitoring.NewListenerMetrics()
	listenerMetrics.MustRegister(registry)
	apiMetrics := monitoring.NewExternalAPIMetrics()
	apiMetrics.MustRegister(registry)
	jobMetrics := monitoring.NewBackgroundJobMetrics()
	jobMetrics.MustRegister(registry)
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(registry)

	notifyCfg := appConfig.Notification
	breakerCfg := monitoring.CircuitBreakerConfig{
		MaxRequests:                 notifyCfg.BreakerMaxRequests,
		Interval:                    notifyCfg.BreakerInterval,
		Timeout:                     notifyCfg.BreakerTimeout,
		ConsecutiveFailureThreshold: notifyCfg.BreakerFailThreshold,
	}
	wooCommerce := monitoring.NewCircuitBreakerNotifier(
		notifier.NewWooCommerce(notifyCfg.Timeout, notifyCfg.WooCommerceAction, logger),
		breakerCfg, notifyCfg.Timeout, apiMetrics, logger)
	shopify := monitoring.NewCircuitBreakerNotifier(
		notifier.NewShopify(notifyCfg.Timeout, notifyCfg.ShopifyAPIVersion, logger),
		breakerCfg, notifyCfg.Timeout, apiMetrics, logger)

	proc := processor.New(db, s, appConfig, processor.Notifiers{
		WooCommerce: wooCommerce,
		Shopify:     shopify,
	}, listenerMetrics, logger)
	tracker := confirmation.New(appConfig.Listener.MinConfirmations, proc, logger, listenerMetrics)
	orderMatcher := matcher.New(db, s, appConfig, logger)

	paymentListener, err := listener.New(appConfig, chainfeed.New(logger), orderMatcher, tracker, listenerMetrics, logger)
	if err != nil {
		logger.Fatal("[server][Init] failed to create listener", map[string]string{
			"error": err.Error(),
		})
	}

	jobStatusManager := monitoring.NewJobStatusManager(logger, jobMetrics)
	sweeper := expiry.New(db, s, listenerMetrics, logger)

	sweepJob := monitoring.NewInstrumentedJob(expiry.JobName, sweeper.Run, jobStatusManager, logger, expiryJobTimeout).
		WithUptimeWebhook(webhook.New(logger), appConfig.Jobs.ExpirySweepWebhookURL)

	c := cron.New()
	_, err = c.AddJob(appConfig.Jobs.ExpirySweepSchedule, sweepJob)
	if err != nil {
		logger.Fatal("[server][Init] invalid expiry sweep schedule", map[string]string{
			"schedule": appConfig.Jobs.ExpirySweepSchedule,
			"error":    err.Error(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go jobStatusManager.Run(ctx)
	c.Start()

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		if err := paymentListener.Start(ctx); err != nil {
			logger.Error("[server][Init] listener exited", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	router := http.NewHttpServer(appConfig, logger, handler.Deps{
		DB:               db,
		Store:            s,
		Listener:         paymentListener,
		Breakers:         []*monitoring.CircuitBreakerNotifier{wooCommerce, shopify},
		JobStatusManager: jobStatusManager,
		Registry:         registry,
	}, httpMetrics)
	srv := &nethttp.Server{
		Addr:    ":" + appConfig.ApiServer.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("[server][Init] http server listening", map[string]string{
			"port": appConfig.ApiServer.Port,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

wait:
	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				if !paymentListener.TriggerReconnect() {
					logger.Info("[server][Init] reconnect already in progress")
				}
				continue
			}
			logger.Info("[server][Init] shutting down", map[string]string{
				"signal": sig.String(),
			})
			break wait
		case err := <-serverErr:
			logger.Error("[server][Init] http server failed", map[string]string{
				"error": err.Error(),
			})
			break wait
		}
	}

	cronCtx := c.Stop()
	paymentListener.Stop()
	<-listenerDone

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("[server][Init] http server shutdown", map[string]string{
			"error": err.Error(),
		})
	}

	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("[server][Init] expiry sweep still running at exit")
	}
}
