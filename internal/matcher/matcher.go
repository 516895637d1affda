package matcher

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/store"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

var DefaultTolerance = decimal.RequireFromString("0.0001")

type Matcher struct {
	db        *gorm.DB
	store     *store.Store
	tolerance decimal.Decimal
	logger    *logger.Logger
}

func New(db *gorm.DB, store *store.Store, appConfig *config.AppConfig, logger *logger.Logger) IMatcher {
	tolerance := appConfig.Listener.MatchTolerance
	if tolerance.IsNegative() || tolerance.IsZero() {
		tolerance = DefaultTolerance
	}

	return &Matcher{
		db:        db,
		store:     store,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Bounds returns the inclusive [min, max] range of order totals accepted for amount.
func Bounds(amount, tolerance decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	return amount.Mul(one.Sub(tolerance)), amount.Mul(one.Add(tolerance))
}

func (m *Matcher) Match(ctx context.Context, toAddress string, rawAmount *big.Int, decimals uint8, exclude ...string) (string, bool) {
	raw := model.NewWeb3BigInt(rawAmount, decimals)
	amount := raw.ToDecimal()
	wallet := strings.ToLower(toAddress)
	min, max := Bounds(amount, m.tolerance)

	order, err := m.store.Order.FindPendingMatch(m.db.WithContext(ctx), wallet, min, max, exclude)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m.logger.Debug("[MatchNotFound] no pending order for transfer", map[string]string{
				"to":     wallet,
				"amount": amount.String(),
			})
			return "", false
		}
		// a store failure is treated as no match; the transfer is dropped
		m.logger.Error("[Matcher][FindPendingMatch]", map[string]string{
			"to":     wallet,
			"amount": amount.String(),
			"error":  err.Error(),
		})
		return "", false
	}

	m.logger.Info("[Matcher][Match] transfer matched order", map[string]string{
		"orderId": order.ID,
		"to":      wallet,
		"amount":  amount.String(),
		"total":   order.TotalAmount.String(),
	})
	return order.ID, true
}
