package order

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, order *model.Order) (*model.Order, error)
	GetByID(tx *gorm.DB, id string) (*model.Order, error)

	// FindPendingMatch returns the oldest PENDING order of the merchant whose total lies within [min, max].
	FindPendingMatch(tx *gorm.DB, merchantWallet string, min, max decimal.Decimal, excludeIDs []string) (*model.Order, error)

	// MarkPaid flips a PENDING order with no transfer hash to PAID, recording the transfer as
	// (transferHash, logIndex). It reports false when no row matched.
	MarkPaid(tx *gorm.DB, id string, transferHash string, logIndex uint, customerWallet string, paidAt time.Time) (bool, error)

	ExpirePending(tx *gorm.DB, now time.Time) (int64, error)
}
