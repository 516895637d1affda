package notifier

import (
	"context"

	"github.com/dwarvesf/payment-listener/internal/model"
)

// INotifier tells an e-commerce platform that an order has been paid on chain.
type INotifier interface {
	Name() string
	NotifyPayment(ctx context.Context, notice PaymentNotice) error
}

type PaymentNotice struct {
	Order    *model.Order
	Merchant *model.Merchant
	TxHash   string
}
