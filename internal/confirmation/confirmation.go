package confirmation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

type State string

const (
	StateConfirmed State = "confirmed"
	StateWatching  State = "watching"
	StateDuplicate State = "duplicate"
	StateCancelled State = "cancelled"
)

type Tracker struct {
	mu               sync.Mutex
	watches          map[string]*model.PendingWatch
	// processing holds the order id of every fired payment until Process returns
	processing       map[string]string
	minConfirmations uint64
	processor        PaymentProcessor
	logger           *logger.Logger
	metrics          *monitoring.ListenerMetrics
	inflight         sync.WaitGroup
}

func New(minConfirmations uint64, processor PaymentProcessor, logger *logger.Logger, metrics *monitoring.ListenerMetrics) *Tracker {
	if minConfirmations == 0 {
		minConfirmations = 1
	}
	return &Tracker{
		watches:          make(map[string]*model.PendingWatch),
		processing:       make(map[string]string),
		minConfirmations: minConfirmations,
		processor:        processor,
		logger:           logger,
		metrics:          metrics,
	}
}

// Confirmations counts inclusively: a transfer in the current head block has one confirmation.
func Confirmations(blockNumber, currentHeight uint64) uint64 {
	if currentHeight < blockNumber {
		return 0
	}
	return currentHeight - blockNumber + 1
}

// TargetBlock is the first height at which a transfer mined in blockNumber reaches min confirmations.
func TargetBlock(blockNumber, min uint64) uint64 {
	return blockNumber + min - 1
}

func watchKey(txHash string, logIndex uint) string {
	return model.TransferEvent{TxHash: txHash, LogIndex: logIndex}.Key()
}

// Observe starts processing a confirmed payment or watches it until its target block.
// It never waits for the processor.
func (t *Tracker) Observe(ctx context.Context, payment model.Payment, logIndex uint, currentHeight uint64) State {
	confirmations := Confirmations(payment.BlockNumber, currentHeight)
	key := watchKey(payment.TxHash, logIndex)

	t.mu.Lock()
	if t.claimedLocked(key) {
		t.mu.Unlock()
		return StateDuplicate
	}

	if confirmations >= t.minConfirmations {
		t.processing[key] = payment.OrderID
		t.inflight.Add(1)
		t.mu.Unlock()

		t.logger.Info("[Tracker][Observe] payment confirmed", map[string]string{
			"orderId":       payment.OrderID,
			"txHash":        payment.TxHash,
			"confirmations": strconv.FormatUint(confirmations, 10),
		})
		go t.fire(context.WithoutCancel(ctx), key, payment)
		return StateConfirmed
	}

	watch := &model.PendingWatch{
		Payment:     payment,
		LogIndex:    logIndex,
		TargetBlock: TargetBlock(payment.BlockNumber, t.minConfirmations),
		CreatedAt:   time.Now(),
	}
	t.watches[key] = watch
	pending := len(t.watches)
	t.mu.Unlock()

	t.metrics.SetPendingWatches(pending)
	t.logger.Info("[Tracker][Observe] waiting for confirmations", map[string]string{
		"orderId":       payment.OrderID,
		"txHash":        payment.TxHash,
		"confirmations": strconv.FormatUint(confirmations, 10),
		"required":      strconv.FormatUint(t.minConfirmations, 10),
		"targetBlock":   strconv.FormatUint(watch.TargetBlock, 10),
	})
	return StateWatching
}

func (t *Tracker) claimedLocked(key string) bool {
	if _, ok := t.watches[key]; ok {
		return true
	}
	_, ok := t.processing[key]
	return ok
}

func (t *Tracker) OnBlock(ctx context.Context, height uint64) int {
	t.mu.Lock()
	due := make(map[string]*model.PendingWatch)
	for key, w := range t.watches {
		if w.TargetBlock <= height {
			due[key] = w
			delete(t.watches, key)
			t.processing[key] = w.Payment.OrderID
		}
	}
	pending := len(t.watches)
	// registered before the lock is released so Wait never misses fired work
	t.inflight.Add(len(due))
	t.mu.Unlock()

	if len(due) == 0 {
		return 0
	}
	t.metrics.SetPendingWatches(pending)

	// fired work outlives the session that fired it
	procCtx := context.WithoutCancel(ctx)
	for key, w := range due {
		t.logger.Info("[Tracker][OnBlock] payment confirmed", map[string]string{
			"orderId":     w.Payment.OrderID,
			"txHash":      w.Payment.TxHash,
			"targetBlock": strconv.FormatUint(w.TargetBlock, 10),
			"height":      strconv.FormatUint(height, 10),
		})
		go t.fire(procCtx, key, w.Payment)
	}
	return len(due)
}

// fire runs the processor and releases the claim once it returns.
func (t *Tracker) fire(ctx context.Context, key string, payment model.Payment) {
	defer t.inflight.Done()
	defer func() {
		t.mu.Lock()
		delete(t.processing, key)
		t.mu.Unlock()
	}()
	t.process(ctx, payment)
}

func (t *Tracker) process(ctx context.Context, payment model.Payment) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("[Tracker][Process] processor panicked", map[string]string{
				"orderId": payment.OrderID,
				"txHash":  payment.TxHash,
				"panic":   fmt.Sprintf("%v", r),
			})
		}
	}()
	t.processor.Process(ctx, payment)
}

// Reset cancels every watch and returns them. The orders stay PENDING.
func (t *Tracker) Reset() []model.PendingWatch {
	t.mu.Lock()
	dropped := make([]model.PendingWatch, 0, len(t.watches))
	for key, w := range t.watches {
		t.logger.Warn("[Tracker][Reset] watch cancelled, order stays pending", map[string]string{
			"orderId":     w.Payment.OrderID,
			"txHash":      w.Payment.TxHash,
			"targetBlock": strconv.FormatUint(w.TargetBlock, 10),
			"state":       string(StateCancelled),
		})
		dropped = append(dropped, *w)
		delete(t.watches, key)
	}
	t.mu.Unlock()

	t.metrics.SetPendingWatches(0)
	return dropped
}

func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watches)
}

// ClaimedOrders lists the orders held by a watch or by a payment still being processed, sorted.
func (t *Tracker) ClaimedOrders() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.watches)+len(t.processing))
	for _, w := range t.watches {
		ids = append(ids, w.Payment.OrderID)
	}
	for _, orderID := range t.processing {
		ids = append(ids, orderID)
	}
	sort.Strings(ids)
	return ids
}

func (t *Tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
