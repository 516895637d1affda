package expiry

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/store"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const JobName = "order_expiry_sweep"

// Sweeper moves overdue direct invoices from PENDING to EXPIRED.
type Sweeper struct {
	db      *gorm.DB
	store   *store.Store
	metrics *monitoring.ListenerMetrics
	logger  *logger.Logger
	now     func() time.Time
}

func New(db *gorm.DB, store *store.Store, metrics *monitoring.ListenerMetrics, logger *logger.Logger) *Sweeper {
	return &Sweeper{
		db:      db,
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	expired, err := s.store.Order.ExpirePending(s.db.WithContext(ctx), s.now().UTC())
	if err != nil {
		s.logger.Error("[Expiry][ExpirePending]", map[string]string{
			"error": err.Error(),
		})
		return err
	}

	if expired > 0 {
		s.metrics.AddExpiredOrders(expired)
		s.logger.Info("[Expiry][Run] expired pending invoices", map[string]string{
			"count": strconv.FormatInt(expired, 10),
		})
	}
	return nil
}
