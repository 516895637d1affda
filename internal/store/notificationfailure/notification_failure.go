package notificationfailure

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type store struct {
}

func New() IStore {
	return &store{}
}

func (s *store) Create(tx *gorm.DB, failure *model.NotificationFailure) (*model.NotificationFailure, error) {
	return failure, tx.Create(failure).Error
}

func (s *store) ListByOrder(tx *gorm.DB, orderID string) ([]model.NotificationFailure, error) {
	var failures []model.NotificationFailure
	err := tx.Where("order_id = ?", orderID).Order("created_at ASC").Find(&failures).Error
	if err != nil {
		return nil, err
	}
	return failures, nil
}
