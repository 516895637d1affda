package processor

import (
	"context"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type IProcessor interface {
	// Process moves the payment's order from PENDING to PAID at most once and tells the order's
	// platform about it. Repeated calls for an order that is no longer PENDING are no-ops.
	Process(ctx context.Context, payment model.Payment) model.ProcessResult
}
