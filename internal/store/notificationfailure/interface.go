package notificationfailure

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, failure *model.NotificationFailure) (*model.NotificationFailure, error)
	ListByOrder(tx *gorm.DB, orderID string) ([]model.NotificationFailure, error)
}
