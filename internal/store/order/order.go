package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) Create(tx *gorm.DB, order *model.Order) (*model.Order, error) {
	return order, tx.Create(order).Error
}

func (s *store) GetByID(tx *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := tx.Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *store) FindPendingMatch(tx *gorm.DB, merchantWallet string, min, max decimal.Decimal, excludeIDs []string) (*model.Order, error) {
	q := tx.Where("merchant_wallet = ? AND status = ?", strings.ToLower(merchantWallet), model.OrderStatusPending).
		Where("total_amount BETWEEN ? AND ?", min, max)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}

	var order model.Order
	err := q.Order("created_at ASC").First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *store) MarkPaid(tx *gorm.DB, id string, transferHash string, logIndex uint, customerWallet string, paidAt time.Time) (bool, error) {
	res := tx.Model(&model.Order{}).
		Where("id = ? AND status = ? AND transfer_hash IS NULL", id, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":             model.OrderStatusPaid,
			"transfer_hash":      transferHash,
			"transfer_log_index": logIndex,
			"customer_wallet":    strings.ToLower(customerWallet),
			"paid_at":            paidAt,
			"updated_at":         paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *store) ExpirePending(tx *gorm.DB, now time.Time) (int64, error) {
	res := tx.Model(&model.Order{}).
		Where("type = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?", model.OrderTypeDirect, model.OrderStatusPending, now).
		Updates(map[string]interface{}{
			"status":     model.OrderStatusExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
