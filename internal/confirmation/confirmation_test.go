package confirmation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/types/environments"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

type recordingProcessor struct {
	mu    sync.Mutex
	calls []model.Payment
	block chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, payment model.Payment) model.ProcessResult {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, payment)
	return model.ProcessResultPaid
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newTracker(min uint64, proc PaymentProcessor) *Tracker {
	return New(min, proc, logger.New(environments.Test), monitoring.NewListenerMetrics())
}

func payment(orderID, txHash string, block uint64) model.Payment {
	return model.Payment{
		OrderID:     orderID,
		TxHash:      txHash,
		FromAddress: "0xcustomer",
		Amount:      decimal.NewFromInt(500),
		BlockNumber: block,
	}
}

func waitFor(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tr.Wait(ctx))
}

func TestConfirmations(t *testing.T) {
	assert.Equal(t, uint64(1), Confirmations(1000, 1000))
	assert.Equal(t, uint64(3), Confirmations(1000, 1002))
	assert.Equal(t, uint64(0), Confirmations(1000, 999))
	assert.Equal(t, uint64(1002), TargetBlock(1000, 3))
	assert.Equal(t, uint64(1000), TargetBlock(1000, 1))
}

func TestObserve_ConfirmedImmediately(t *testing.T) {
	proc := &recordingProcessor{}
	tr := newTracker(1, proc)

	state := tr.Observe(context.Background(), payment("o1", "0xaa", 1000), 0, 1000)

	assert.Equal(t, StateConfirmed, state)
	waitFor(t, tr)
	assert.Equal(t, 1, proc.count())
	assert.Zero(t, tr.Pending())
	assert.Empty(t, tr.ClaimedOrders())
}

func TestObserve_ConfirmedDoesNotWaitForProcessor(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	tr := newTracker(1, proc)
	ctx := context.Background()

	returned := make(chan State, 2)
	go func() {
		returned <- tr.Observe(ctx, payment("o1", "0xaa", 1000), 0, 1000)
		returned <- tr.Observe(ctx, payment("o2", "0xbb", 1000), 0, 1000)
	}()

	for i := 0; i < 2; i++ {
		select {
		case state := <-returned:
			assert.Equal(t, StateConfirmed, state)
		case <-time.After(time.Second):
			t.Fatal("Observe waited for the processor")
		}
	}

	assert.Equal(t, []string{"o1", "o2"}, tr.ClaimedOrders())
	assert.Equal(t, StateDuplicate, tr.Observe(ctx, payment("o1", "0xaa", 1000), 0, 1001))

	close(proc.block)
	waitFor(t, tr)
	assert.Equal(t, 2, proc.count())
	assert.Empty(t, tr.ClaimedOrders())
}

func TestOnBlock_FiredOrderStaysClaimedUntilProcessed(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	tr := newTracker(2, proc)
	ctx := context.Background()

	tr.Observe(ctx, payment("o1", "0xaa", 10), 0, 10)
	require.Equal(t, 1, tr.OnBlock(ctx, 11))

	assert.Zero(t, tr.Pending())
	assert.Equal(t, []string{"o1"}, tr.ClaimedOrders())

	close(proc.block)
	waitFor(t, tr)
	assert.Empty(t, tr.ClaimedOrders())
}

func TestObserve_GatingFiresOnceAtTarget(t *testing.T) {
	proc := &recordingProcessor{}
	tr := newTracker(3, proc)
	ctx := context.Background()

	state := tr.Observe(ctx, payment("o1", "0xaa", 1000), 0, 1000)
	require.Equal(t, StateWatching, state)
	assert.Equal(t, 1, tr.Pending())
	assert.Equal(t, []string{"o1"}, tr.ClaimedOrders())

	assert.Equal(t, 0, tr.OnBlock(ctx, 1001))
	waitFor(t, tr)
	assert.Equal(t, 0, proc.count())

	assert.Equal(t, 1, tr.OnBlock(ctx, 1002))
	waitFor(t, tr)
	assert.Equal(t, 1, proc.count())

	assert.Equal(t, 0, tr.OnBlock(ctx, 1003))
	assert.Equal(t, 0, tr.OnBlock(ctx, 1004))
	waitFor(t, tr)
	assert.Equal(t, 1, proc.count())
	assert.Empty(t, tr.ClaimedOrders())
}

func TestObserve_SkippedBlocksStillFire(t *testing.T) {
	proc := &recordingProcessor{}
	tr := newTracker(5, proc)
	ctx := context.Background()

	tr.Observe(ctx, payment("o1", "0xaa", 100), 0, 100)
	assert.Equal(t, 1, tr.OnBlock(ctx, 110))
	waitFor(t, tr)
	assert.Equal(t, 1, proc.count())
}

func TestObserve_DuplicateWatchIgnored(t *testing.T) {
	proc := &recordingProcessor{}
	tr := newTracker(3, proc)
	ctx := context.Background()

	assert.Equal(t, StateWatching, tr.Observe(ctx, payment("o1", "0xaa", 1000), 2, 1000))
	assert.Equal(t, StateDuplicate, tr.Observe(ctx, payment("o1", "0xaa", 1000), 2, 1001))
	assert.Equal(t, StateWatching, tr.Observe(ctx, payment("o2", "0xaa", 1000), 3, 1000))
	assert.Equal(t, 2, tr.Pending())
}

func TestReset_DropsWithoutFiring(t *testing.T) {
	proc := &recordingProcessor{}
	tr := newTracker(3, proc)
	ctx := context.Background()

	tr.Observe(ctx, payment("o1", "0xaa", 1000), 0, 1000)
	tr.Observe(ctx, payment("o2", "0xbb", 1000), 0, 1000)

	dropped := tr.Reset()
	assert.Len(t, dropped, 2)
	assert.Zero(t, tr.Pending())

	assert.Equal(t, 0, tr.OnBlock(ctx, 2000))
	waitFor(t, tr)
	assert.Equal(t, 0, proc.count())
}

func TestOnBlock_DoesNotBlockOnProcessing(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	tr := newTracker(2, proc)
	ctx := context.Background()

	tr.Observe(ctx, payment("o1", "0xaa", 10), 0, 10)
	tr.Observe(ctx, payment("o2", "0xbb", 10), 0, 10)

	fired := tr.OnBlock(ctx, 11)
	assert.Equal(t, 2, fired)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Wait(short), context.DeadlineExceeded)

	close(proc.block)
	waitFor(t, tr)
	assert.Equal(t, 2, proc.count())
}

func TestOnBlock_FiredWorkSurvivesSessionCancel(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	tr := newTracker(2, proc)

	ctx, cancel := context.WithCancel(context.Background())
	tr.Observe(ctx, payment("o1", "0xaa", 10), 0, 10)
	tr.OnBlock(ctx, 11)
	cancel()
	close(proc.block)

	waitFor(t, tr)
	assert.Equal(t, 1, proc.count())
}

type panickingProcessor struct{}

func (panickingProcessor) Process(ctx context.Context, payment model.Payment) model.ProcessResult {
	panic("boom")
}

func TestProcessPanicIsContained(t *testing.T) {
	tr := newTracker(1, panickingProcessor{})

	assert.NotPanics(t, func() {
		tr.Observe(context.Background(), payment("o1", "0xaa", 5), 0, 5)
		waitFor(t, tr)
	})
	assert.Empty(t, tr.ClaimedOrders())
}
