package listener

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"

	"github.com/dwarvesf/payment-listener/internal/chainfeed"
	"github.com/dwarvesf/payment-listener/internal/model"
)

const (
	merchantWallet = "0xabcdef0000000000000000000000000000000001"
	testChainID    = 11155111
)

type fakeFeed struct {
	transfers     chan model.TransferEvent
	heights       chan uint64
	killTransfers chan error
	height        atomic.Uint64
	probeErr      atomic.Bool
	closed        atomic.Bool
}

func newFakeFeed(height uint64) *fakeFeed {
	f := &fakeFeed{
		transfers:     make(chan model.TransferEvent, 16),
		heights:       make(chan uint64, 16),
		killTransfers: make(chan error, 1),
	}
	f.height.Store(height)
	return f
}

func (f *fakeFeed) SubscribeTransfers(ctx context.Context, tokenAddress string) (<-chan model.TransferEvent, event.Subscription, error) {
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case <-quit:
			return nil
		case err := <-f.killTransfers:
			return err
		}
	})
	return f.transfers, sub, nil
}

func (f *fakeFeed) SubscribeBlockHeight(ctx context.Context) (<-chan uint64, event.Subscription, error) {
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	})
	return f.heights, sub, nil
}

func (f *fakeFeed) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	if f.probeErr.Load() {
		return 0, &chainfeed.ConnectionError{Op: "block number", Err: errors.New("i/o timeout")}
	}
	return f.height.Load(), nil
}

func (f *fakeFeed) TokenInfo(ctx context.Context, tokenAddress string) (*chainfeed.TokenInfo, error) {
	return &chainfeed.TokenInfo{Address: tokenAddress, Symbol: "MNEE", Decimals: 18}, nil
}

func (f *fakeFeed) ChainID() uint64 {
	return testChainID
}

func (f *fakeFeed) Close() {
	f.closed.Store(true)
}

type fakeDialer struct {
	mu       sync.Mutex
	queue    []*fakeFeed
	failures int
	dials    int
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (chainfeed.IFeed, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, &chainfeed.ConnectionError{Op: "dial", Err: errors.New("connection refused")}
	}
	if len(d.queue) == 0 {
		return nil, &chainfeed.ConnectionError{Op: "dial", Err: errors.New("no node")}
	}
	f := d.queue[0]
	d.queue = d.queue[1:]
	return f, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// fakeMatcher hands out pending orders of one wallet in FIFO order.
type fakeMatcher struct {
	mu          sync.Mutex
	orders      []string
	paid        map[string]bool
	calls       int
	lastExclude []string
}

func newFakeMatcher(orders ...string) *fakeMatcher {
	return &fakeMatcher{orders: orders, paid: map[string]bool{}}
}

func (m *fakeMatcher) Match(ctx context.Context, toAddress string, rawAmount *big.Int, decimals uint8, exclude ...string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastExclude = exclude
	if toAddress != merchantWallet {
		return "", false
	}
	for _, id := range m.orders {
		if m.paid[id] || contains(exclude, id) {
			continue
		}
		return id, true
	}
	return "", false
}

func (m *fakeMatcher) markPaid(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paid[id] = true
}

func (m *fakeMatcher) isPaid(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paid[id]
}

func (m *fakeMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *fakeMatcher) excluded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastExclude
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type recordingProcessor struct {
	mu      sync.Mutex
	matcher *fakeMatcher
	paid    []string
	// block, when set, holds every Process call until it is closed
	block chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, payment model.Payment) model.ProcessResult {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.matcher.isPaid(payment.OrderID) {
		return model.ProcessResultStale
	}
	p.matcher.markPaid(payment.OrderID)
	p.paid = append(p.paid, payment.OrderID)
	return model.ProcessResultPaid
}

func (p *recordingProcessor) orders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paid...)
}

func transfer(txHash string, block uint64) model.TransferEvent {
	return model.TransferEvent{
		From:        "0xc0ffee0000000000000000000000000000000002",
		To:          merchantWallet,
		Value:       new(big.Int).Mul(big.NewInt(500), big.NewInt(1_000_000_000_000_000_000)),
		Decimals:    18,
		TxHash:      txHash,
		BlockNumber: block,
	}
}
