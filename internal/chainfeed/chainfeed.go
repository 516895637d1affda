package chainfeed

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/dwarvesf/payment-listener/contracts/erc20"
	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const streamBuffer = 64

type dialer struct {
	logger  *logger.Logger
	dialRPC func(ctx context.Context, endpoint string) (*rpc.Client, error)
}

func New(logger *logger.Logger) IDialer {
	return &dialer{
		logger:  logger,
		dialRPC: rpc.DialContext,
	}
}

func (d *dialer) Dial(ctx context.Context, endpoint string) (IFeed, error) {
	rpcClient, err := d.dialRPC(ctx, endpoint)
	if err != nil {
		return nil, connErr("dial", errors.Wrap(err, "failed to dial node"))
	}
	client := ethclient.NewClient(rpcClient)

	// the chain id round trip proves the session is usable
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, connErr("dial", errors.Wrap(err, "node did not answer chain id"))
	}

	return &feed{
		client:  client,
		chainID: chainID.Uint64(),
		logger:  d.logger,
	}, nil
}

type feed struct {
	client    *ethclient.Client
	chainID   uint64
	logger    *logger.Logger
	closeOnce sync.Once
}

func (f *feed) ChainID() uint64 {
	return f.chainID
}

func (f *feed) token(tokenAddress string) (*erc20.Erc20, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, errors.Errorf("invalid token address %q", tokenAddress)
	}
	return erc20.NewErc20(common.HexToAddress(tokenAddress), f.client)
}

func (f *feed) TokenInfo(ctx context.Context, tokenAddress string) (*TokenInfo, error) {
	token, err := f.token(tokenAddress)
	if err != nil {
		return nil, err
	}

	decimals, err := token.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, connErr("decimals", err)
	}
	symbol, err := token.Symbol(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, connErr("symbol", err)
	}

	return &TokenInfo{
		Address:  strings.ToLower(tokenAddress),
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

func (f *feed) SubscribeTransfers(ctx context.Context, tokenAddress string) (<-chan model.TransferEvent, event.Subscription, error) {
	token, err := f.token(tokenAddress)
	if err != nil {
		return nil, nil, err
	}

	// decimals are fixed for the life of the subscription
	decimals, err := token.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, nil, connErr("decimals", err)
	}

	sink := make(chan *erc20.Erc20Transfer, streamBuffer)
	watchSub, err := token.WatchTransfer(&bind.WatchOpts{Context: ctx}, sink, nil, nil)
	if err != nil {
		return nil, nil, connErr("subscribe transfers", err)
	}

	out := make(chan model.TransferEvent, streamBuffer)
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		defer watchSub.Unsubscribe()
		for {
			select {
			case raw := <-sink:
				if raw.Raw.Removed {
					f.logger.Warn("[chainfeed][SubscribeTransfers] dropping removed log", map[string]string{
						"txHash": raw.Raw.TxHash.Hex(),
					})
					continue
				}
				select {
				case out <- toTransferEvent(raw, decimals):
				case err := <-watchSub.Err():
					return connErr("transfers", err)
				case <-quit:
					return nil
				}
			case err := <-watchSub.Err():
				return connErr("transfers", err)
			case <-quit:
				return nil
			}
		}
	})

	return out, sub, nil
}

func (f *feed) SubscribeBlockHeight(ctx context.Context) (<-chan uint64, event.Subscription, error) {
	headers := make(chan *types.Header, streamBuffer)
	headSub, err := f.client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return nil, nil, connErr("subscribe heads", err)
	}

	out := make(chan uint64, streamBuffer)
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		defer headSub.Unsubscribe()
		for {
			select {
			case h := <-headers:
				if h == nil || h.Number == nil {
					continue
				}
				select {
				case out <- h.Number.Uint64():
				case err := <-headSub.Err():
					return connErr("heads", err)
				case <-quit:
					return nil
				}
			case err := <-headSub.Err():
				return connErr("heads", err)
			case <-quit:
				return nil
			}
		}
	})

	return out, sub, nil
}

func (f *feed) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	height, err := f.client.BlockNumber(ctx)
	if err != nil {
		return 0, connErr("block number", err)
	}
	return height, nil
}

func (f *feed) Close() {
	f.closeOnce.Do(f.client.Close)
}

func toTransferEvent(raw *erc20.Erc20Transfer, decimals uint8) model.TransferEvent {
	return model.TransferEvent{
		From:        strings.ToLower(raw.From.Hex()),
		To:          strings.ToLower(raw.To.Hex()),
		Value:       raw.Value,
		Decimals:    decimals,
		TxHash:      raw.Raw.TxHash.Hex(),
		BlockNumber: raw.Raw.BlockNumber,
		LogIndex:    raw.Raw.Index,
	}
}
