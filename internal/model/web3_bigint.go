package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Web3BigInt is a raw on-chain token amount together with its decimals.
type Web3BigInt struct {
	Value   string `json:"value"`
	Decimal int    `json:"decimal"`
}

func NewWeb3BigInt(value *big.Int, decimals uint8) Web3BigInt {
	if value == nil {
		value = big.NewInt(0)
	}
	return Web3BigInt{Value: value.String(), Decimal: int(decimals)}
}

func (w *Web3BigInt) BigInt() (*big.Int, bool) {
	return new(big.Int).SetString(w.Value, 10)
}

// ToDecimal scales the raw value down by Decimal. An unparsable value yields zero.
func (w *Web3BigInt) ToDecimal() decimal.Decimal {
	num, ok := w.BigInt()
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(num, -int32(w.Decimal))
}
