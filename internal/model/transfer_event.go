package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TransferEvent is one ERC-20 Transfer log as delivered by the chain feed.
// Addresses are lowercase hex.
type TransferEvent struct {
	From        string
	To          string
	Value       *big.Int
	Decimals    uint8
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
}

// Amount is Value scaled down by the token decimals.
func (e TransferEvent) Amount() decimal.Decimal {
	raw := e.Raw()
	return raw.ToDecimal()
}

func (e TransferEvent) Raw() Web3BigInt {
	return NewWeb3BigInt(e.Value, e.Decimals)
}

// Key identifies the log across redeliveries.
func (e TransferEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.TxHash, e.LogIndex)
}
