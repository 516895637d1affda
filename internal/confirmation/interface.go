package confirmation

import (
	"context"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type ITracker interface {
	// Observe decides whether a matched payment is already deep enough. Confirmed payments are
	// processed on their own goroutine; shallower ones are parked until OnBlock reaches their target.
	Observe(ctx context.Context, payment model.Payment, logIndex uint, currentHeight uint64) State
	// OnBlock fires every watch whose target is at or below height and returns how many fired.
	OnBlock(ctx context.Context, height uint64) int
	// Reset drops every watch without firing it.
	Reset() []model.PendingWatch
	Pending() int
	// ClaimedOrders lists orders held by a watch or by a payment whose processing has not returned.
	ClaimedOrders() []string
	// Wait blocks until fired payments finish processing or ctx is done.
	Wait(ctx context.Context) error
}

// PaymentProcessor is the part of the processor the tracker hands confirmed payments to.
type PaymentProcessor interface {
	Process(ctx context.Context, payment model.Payment) model.ProcessResult
}
