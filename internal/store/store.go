package store

import (
	"github.com/dwarvesf/payment-listener/internal/store/merchant"
	"github.com/dwarvesf/payment-listener/internal/store/notificationfailure"
	"github.com/dwarvesf/payment-listener/internal/store/order"
)

type Store struct {
	Order               order.IStore
	Merchant            merchant.IStore
	NotificationFailure notificationfailure.IStore
}

func New() *Store {
	return &Store{
		Order:               order.New(),
		Merchant:            merchant.New(),
		NotificationFailure: notificationfailure.New(),
	}
}
