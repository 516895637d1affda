package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a matched transfer handed to the payment processor.
type Payment struct {
	OrderID     string
	TxHash      string
	LogIndex    uint
	FromAddress string
	Amount      decimal.Decimal
	BlockNumber uint64
}

func NewPayment(orderID string, ev TransferEvent) Payment {
	return Payment{
		OrderID:     orderID,
		TxHash:      ev.TxHash,
		LogIndex:    ev.LogIndex,
		FromAddress: ev.From,
		Amount:      ev.Amount(),
		BlockNumber: ev.BlockNumber,
	}
}

// PendingWatch is a payment waiting for its confirmation depth.
type PendingWatch struct {
	Payment     Payment
	LogIndex    uint
	TargetBlock uint64
	CreatedAt   time.Time
}

type ProcessResult string

const (
	ProcessResultPaid     ProcessResult = "paid"
	ProcessResultStale    ProcessResult = "stale"
	ProcessResultNotFound ProcessResult = "not_found"
	ProcessResultFailed   ProcessResult = "failed"
)
