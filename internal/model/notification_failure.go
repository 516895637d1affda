package model

import "time"

// NotificationFailure records a platform notification that did not go through
// after the order was already marked PAID.
type NotificationFailure struct {
	ID        uint      `json:"id" gorm:"column:id;primaryKey"`
	OrderID   string    `json:"order_id" gorm:"column:order_id;type:varchar(64);not null;index"`
	Platform  OrderType `json:"platform" gorm:"column:platform;type:varchar(20);not null"`
	TxHash    string    `json:"tx_hash" gorm:"column:tx_hash;type:varchar(66);not null"`
	Error     string    `json:"error" gorm:"column:error;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (NotificationFailure) TableName() string {
	return "notification_failures"
}
