package chainfeed

import (
	"context"

	"github.com/ethereum/go-ethereum/event"

	"github.com/dwarvesf/payment-listener/internal/model"
)

type IDialer interface {
	// Dial opens a session to the node and verifies it answers before returning.
	Dial(ctx context.Context, endpoint string) (IFeed, error)
}

type IFeed interface {
	// SubscribeTransfers streams Transfer logs of the token in node delivery order.
	// A terminal stream failure arrives on the subscription's Err channel as *ConnectionError.
	SubscribeTransfers(ctx context.Context, tokenAddress string) (<-chan model.TransferEvent, event.Subscription, error)
	SubscribeBlockHeight(ctx context.Context) (<-chan uint64, event.Subscription, error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	TokenInfo(ctx context.Context, tokenAddress string) (*TokenInfo, error)
	ChainID() uint64
	Close()
}

type TokenInfo struct {
	Address  string
	Symbol   string
	Decimals uint8
}
