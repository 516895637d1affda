package matcher

import (
	"context"
	"math/big"
)

type IMatcher interface {
	// Match finds the oldest PENDING order of the receiving merchant whose total is within tolerance
	// of the transferred amount. Orders listed in exclude are skipped.
	Match(ctx context.Context, toAddress string, rawAmount *big.Int, decimals uint8, exclude ...string) (string, bool)
}
