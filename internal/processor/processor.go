package processor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/notifier"
	"github.com/dwarvesf/payment-listener/internal/store"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const merchantCacheType = "merchant"

// Notifiers holds one capability per platform; a nil entry disables that platform.
type Notifiers struct {
	WooCommerce notifier.INotifier
	Shopify     notifier.INotifier
}

type Processor struct {
	db            *gorm.DB
	store         *store.Store
	notifiers     Notifiers
	merchantCache *cache.Cache
	metrics       *monitoring.ListenerMetrics
	logger        *logger.Logger
	now           func() time.Time
}

func New(db *gorm.DB, store *store.Store, appConfig *config.AppConfig, notifiers Notifiers, metrics *monitoring.ListenerMetrics, logger *logger.Logger) IProcessor {
	ttl := appConfig.Notification.MerchantCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &Processor{
		db:            db,
		store:         store,
		notifiers:     notifiers,
		merchantCache: cache.New(ttl, 2*ttl),
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

func (p *Processor) Process(ctx context.Context, payment model.Payment) model.ProcessResult {
	result := p.process(ctx, payment)
	p.metrics.RecordPayment(string(result))
	return result
}

func (p *Processor) process(ctx context.Context, payment model.Payment) model.ProcessResult {
	db := p.db.WithContext(ctx)

	order, err := p.store.Order.GetByID(db, payment.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logger.Error("[OrderNotFound] matched order disappeared before processing", map[string]string{
				"orderId": payment.OrderID,
				"txHash":  payment.TxHash,
			})
			return model.ProcessResultNotFound
		}
		p.logger.Error("[Processor][GetByID]", map[string]string{
			"orderId": payment.OrderID,
			"error":   err.Error(),
		})
		return model.ProcessResultFailed
	}

	if !order.IsPending() {
		p.logger.Info("[StaleOrderState] order is no longer pending", map[string]string{
			"orderId": order.ID,
			"status":  string(order.Status),
			"txHash":  payment.TxHash,
		})
		return model.ProcessResultStale
	}

	paidAt := p.now().UTC()
	var updated bool
	err = store.DoInTx(db, func(tx *gorm.DB) error {
		var txErr error
		updated, txErr = p.store.Order.MarkPaid(tx, order.ID, payment.TxHash, payment.LogIndex, payment.FromAddress, paidAt)
		return txErr
	})
	if err != nil {
		p.logger.Error("[Processor][MarkPaid]", map[string]string{
			"orderId": order.ID,
			"txHash":  payment.TxHash,
			"error":   err.Error(),
		})
		return model.ProcessResultFailed
	}
	if !updated {
		p.logger.Info("[StaleOrderState] order was paid by a concurrent confirmation", map[string]string{
			"orderId": order.ID,
			"txHash":  payment.TxHash,
		})
		return model.ProcessResultStale
	}

	p.logger.Info("[Processor][Process] order marked as paid", map[string]string{
		"orderId":  order.ID,
		"txHash":   payment.TxHash,
		"logIndex": strconv.FormatUint(uint64(payment.LogIndex), 10),
		"customer": payment.FromAddress,
		"amount":   payment.Amount.String(),
		"type":     string(order.Type),
	})

	txHash := payment.TxHash
	logIndex := payment.LogIndex
	customer := strings.ToLower(payment.FromAddress)
	order.Status = model.OrderStatusPaid
	order.TransferHash = &txHash
	order.TransferLogIndex = &logIndex
	order.CustomerWallet = &customer
	order.PaidAt = &paidAt

	p.notify(ctx, order, payment.TxHash)
	return model.ProcessResultPaid
}

// notify never undoes PAID; failures end up in notification_failures.
func (p *Processor) notify(ctx context.Context, order *model.Order, txHash string) {
	var target notifier.INotifier
	switch order.Type {
	case model.OrderTypeWooCommerce:
		target = p.notifiers.WooCommerce
	case model.OrderTypeShopify:
		target = p.notifiers.Shopify
	default:
		return
	}
	if target == nil {
		p.recordFailure(ctx, order, txHash, errors.New("no notifier configured for platform"))
		return
	}

	merchant, err := p.merchant(ctx, order.MerchantWallet)
	if err != nil {
		p.recordFailure(ctx, order, txHash, err)
		return
	}

	if err := checkPlatformLinkage(order, merchant); err != nil {
		p.recordFailure(ctx, order, txHash, err)
		return
	}

	err = target.NotifyPayment(ctx, notifier.PaymentNotice{
		Order:    order,
		Merchant: merchant,
		TxHash:   txHash,
	})
	if err != nil {
		p.recordFailure(ctx, order, txHash, err)
		return
	}

	p.metrics.RecordNotification(string(order.Type), "success")
	p.logger.Info("[Processor][Notify] platform notified", map[string]string{
		"orderId":  order.ID,
		"platform": target.Name(),
		"txHash":   txHash,
	})
}

func checkPlatformLinkage(order *model.Order, merchant *model.Merchant) error {
	switch order.Type {
	case model.OrderTypeWooCommerce:
		if isEmpty(order.OrderConfirmation) {
			return errors.New("order has no woocommerce order key")
		}
		if isEmpty(merchant.WooCommerceSiteURL) {
			return errors.New("merchant has no woocommerce site url")
		}
	case model.OrderTypeShopify:
		if isEmpty(order.AdminGraphqlApiID) {
			return errors.New("order has no shopify admin graphql id")
		}
		if isEmpty(merchant.ShopifyShopDomain) || isEmpty(merchant.ShopifyAccessToken) {
			return errors.New("merchant has no shopify credentials")
		}
	}
	return nil
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}

func (p *Processor) merchant(ctx context.Context, wallet string) (*model.Merchant, error) {
	if cached, found := p.merchantCache.Get(wallet); found {
		p.metrics.RecordCacheOperation(merchantCacheType, "hit")
		return cached.(*model.Merchant), nil
	}
	p.metrics.RecordCacheOperation(merchantCacheType, "miss")

	merchant, err := p.store.Merchant.GetByWallet(p.db.WithContext(ctx), wallet)
	if err != nil {
		return nil, err
	}
	p.merchantCache.Set(wallet, merchant, cache.DefaultExpiration)
	return merchant, nil
}

func (p *Processor) recordFailure(ctx context.Context, order *model.Order, txHash string, cause error) {
	p.metrics.RecordNotification(string(order.Type), "failure")
	p.logger.Error("[NotificationFailure] platform was not notified, order stays paid", map[string]string{
		"orderId":  order.ID,
		"platform": string(order.Type),
		"txHash":   txHash,
		"error":    cause.Error(),
	})

	_, err := p.store.NotificationFailure.Create(p.db.WithContext(ctx), &model.NotificationFailure{
		OrderID:  order.ID,
		Platform: order.Type,
		TxHash:   txHash,
		Error:    cause.Error(),
	})
	if err != nil {
		p.logger.Error("[Processor][RecordFailure]", map[string]string{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}
