package listener

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/dwarvesf/payment-listener/internal/chainfeed"
	"github.com/dwarvesf/payment-listener/internal/confirmation"
	"github.com/dwarvesf/payment-listener/internal/matcher"
	"github.com/dwarvesf/payment-listener/internal/model"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateActive       State = "active"
	StateReconnecting State = "reconnecting"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

var allStates = []string{
	string(StateDisconnected),
	string(StateConnecting),
	string(StateActive),
	string(StateReconnecting),
	string(StateShuttingDown),
	string(StateStopped),
}

var (
	errReconnectRequested = errors.New("reconnect requested")
	errAlreadyStarted     = errors.New("listener already started")
)

type Status struct {
	State          State      `json:"state"`
	Network        string     `json:"network"`
	ChainID        uint64     `json:"chain_id"`
	ChainHead      uint64     `json:"chain_head"`
	PendingWatches int        `json:"pending_watches"`
	Reconnects     int64      `json:"reconnects"`
	LastEventAt    *time.Time `json:"last_event_at,omitempty"`
}

type Listener struct {
	cfg     config.ListenerConfig
	dialer  chainfeed.IDialer
	matcher matcher.IMatcher
	tracker confirmation.ITracker
	metrics *monitoring.ListenerMetrics
	logger  *logger.Logger
	dedup   *lru.Cache

	mu          sync.RWMutex
	state       State
	chainID     uint64
	head        uint64
	lastEventAt time.Time
	cancel      context.CancelFunc

	reconnects       atomic.Int64
	reconnectPending atomic.Bool
	reconnectCh      chan struct{}

	started atomic.Bool
	done    chan struct{}
}

func New(appConfig *config.AppConfig, dialer chainfeed.IDialer, matcher matcher.IMatcher, tracker confirmation.ITracker, metrics *monitoring.ListenerMetrics, logger *logger.Logger) (IListener, error) {
	cfg := appConfig.Listener
	if cfg.DedupCacheSize <= 0 {
		cfg.DedupCacheSize = 4096
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectDelay
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}

	dedup, err := lru.New(cfg.DedupCacheSize)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		cfg:         cfg,
		dialer:      dialer,
		matcher:     matcher,
		tracker:     tracker,
		metrics:     metrics,
		logger:      logger.With(map[string]string{"network": cfg.NetworkName}),
		dedup:       dedup,
		state:       StateDisconnected,
		reconnectCh: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	// nothing to reconnect until the first session is up
	l.reconnectPending.Store(true)
	l.metrics.SetState(string(StateDisconnected), allStates)
	return l, nil
}

func (l *Listener) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}
	defer close(l.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	l.logger.Info("[Listener][Start] starting payment listener", map[string]string{
		"rpc":              maskEndpoint(l.cfg.RPCEndpoint),
		"token":            l.cfg.TokenAddress,
		"minConfirmations": strconv.FormatUint(l.cfg.MinConfirmations, 10),
	})

	delay := l.cfg.ReconnectDelay
	for {
		l.setState(StateConnecting)
		connected, err := l.runSession(ctx)
		if ctx.Err() != nil {
			break
		}

		l.reconnectPending.Store(true)
		l.setState(StateReconnecting)
		l.reconnects.Add(1)
		l.metrics.RecordReconnect()

		if connected {
			delay = l.cfg.ReconnectDelay
		}
		l.logger.Warn("[ConnectionError] session ended, reconnecting", map[string]string{
			"error": errString(err),
			"delay": delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
		delay = nextDelay(delay, l.cfg.ReconnectMaxDelay)
	}

	l.shutdown()
	return nil
}

func (l *Listener) shutdown() {
	l.reconnectPending.Store(true)
	l.setState(StateShuttingDown)

	if l.cfg.DrainTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.DrainTimeout)
		defer cancel()
		if err := l.tracker.Wait(ctx); err != nil {
			l.logger.Warn("[Listener][Shutdown] drain window elapsed with payments still processing", map[string]string{
				"drainTimeout": l.cfg.DrainTimeout.String(),
			})
		}
	}

	l.setState(StateStopped)
	l.logger.Info("[Listener][Shutdown] listener stopped")
}

func (l *Listener) Stop() {
	l.mu.RLock()
	cancel := l.cancel
	l.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-l.done
}

func (l *Listener) TriggerReconnect() bool {
	if !l.reconnectPending.CompareAndSwap(false, true) {
		return false
	}
	l.reconnectCh <- struct{}{}
	return true
}

func (l *Listener) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Status{
		State:          l.state,
		Network:        l.cfg.NetworkName,
		ChainID:        l.chainID,
		ChainHead:      l.head,
		PendingWatches: l.tracker.Pending(),
		Reconnects:     l.reconnects.Load(),
	}
	if !l.lastEventAt.IsZero() {
		t := l.lastEventAt
		s.LastEventAt = &t
	}
	return s
}

// runSession connects once and serves events until the session fails or ctx is cancelled.
// connected reports whether the session got as far as Active.
func (l *Listener) runSession(ctx context.Context) (connected bool, err error) {
	dialCtx, cancelDial := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
	feed, err := l.dialer.Dial(dialCtx, l.cfg.RPCEndpoint)
	cancelDial()
	if err != nil {
		l.logger.Error("[ConnectionError] failed to connect to node", map[string]string{
			"rpc":   maskEndpoint(l.cfg.RPCEndpoint),
			"error": err.Error(),
		})
		return false, err
	}

	sessCtx, cancelSess := context.WithCancel(ctx)
	var subs []interface{ Unsubscribe() }
	var worker sync.WaitGroup
	defer func() {
		cancelSess()
		for _, s := range subs {
			s.Unsubscribe()
		}
		worker.Wait()
		l.teardown(feed)
	}()

	info, err := feed.TokenInfo(sessCtx, l.cfg.TokenAddress)
	if err != nil {
		return false, err
	}
	transfers, transferSub, err := feed.SubscribeTransfers(sessCtx, l.cfg.TokenAddress)
	if err != nil {
		return false, err
	}
	subs = append(subs, transferSub)
	heights, heightSub, err := feed.SubscribeBlockHeight(sessCtx)
	if err != nil {
		return false, err
	}
	subs = append(subs, heightSub)
	head, err := feed.CurrentBlockHeight(sessCtx)
	if err != nil {
		return false, err
	}

	l.activate(feed.ChainID(), head)
	l.logger.Info("[Listener][Connect] listening for transfers", map[string]string{
		"chainId":  strconv.FormatUint(feed.ChainID(), 10),
		"symbol":   info.Symbol,
		"decimals": strconv.Itoa(int(info.Decimals)),
		"head":     strconv.FormatUint(head, 10),
	})

	worker.Add(1)
	go func() {
		defer worker.Done()
		l.transferWorker(sessCtx, feed, transfers)
	}()

	probe := time.NewTicker(l.cfg.ProbeInterval)
	defer probe.Stop()

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case height := <-heights:
			l.onHeight(sessCtx, height)
		case err := <-transferSub.Err():
			return true, streamErr(err)
		case err := <-heightSub.Err():
			return true, streamErr(err)
		case <-probe.C:
			probeCtx, cancelProbe := context.WithTimeout(sessCtx, l.cfg.ProbeTimeout)
			height, err := feed.CurrentBlockHeight(probeCtx)
			cancelProbe()
			if err != nil {
				l.logger.Error("[ConnectionError] liveness probe failed", map[string]string{
					"error": err.Error(),
				})
				return true, err
			}
			l.onHeight(sessCtx, height)
		case <-l.reconnectCh:
			l.logger.Info("[Listener][Reconnect] reconnect requested")
			return true, errReconnectRequested
		}
	}
}

// teardown runs after the transfer worker has exited, so no watch can be added behind Reset.
func (l *Listener) teardown(feed chainfeed.IFeed) {
	dropped := l.tracker.Reset()
	for _, w := range dropped {
		// let a redelivered transfer be observed again on the next session
		l.dedup.Remove(model.TransferEvent{TxHash: w.Payment.TxHash, LogIndex: w.LogIndex}.Key())
	}
	feed.Close()

	if len(dropped) > 0 {
		l.logger.Warn("[Listener][Teardown] pending confirmations cancelled", map[string]string{
			"cancelled": strconv.Itoa(len(dropped)),
		})
	}
}

func (l *Listener) transferWorker(ctx context.Context, feed chainfeed.IFeed, transfers <-chan model.TransferEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-transfers:
			l.handleTransfer(ctx, feed, ev)
		}
	}
}

func (l *Listener) handleTransfer(ctx context.Context, feed chainfeed.IFeed, ev model.TransferEvent) {
	l.mu.Lock()
	l.lastEventAt = time.Now()
	l.mu.Unlock()

	if seen, _ := l.dedup.ContainsOrAdd(ev.Key(), struct{}{}); seen {
		l.metrics.RecordTransfer("duplicate")
		l.logger.Debug("[Listener][Transfer] duplicate delivery skipped", map[string]string{
			"txHash":   ev.TxHash,
			"logIndex": strconv.FormatUint(uint64(ev.LogIndex), 10),
		})
		return
	}

	orderID, ok := l.matcher.Match(ctx, ev.To, ev.Value, ev.Decimals, l.tracker.ClaimedOrders()...)
	if !ok {
		l.metrics.RecordTransfer("unmatched")
		return
	}
	l.metrics.RecordTransfer("matched")

	height, err := feed.CurrentBlockHeight(ctx)
	if err != nil {
		// the last seen head is a lower bound, so this can only under-count confirmations
		height = l.knownHead()
		if height < ev.BlockNumber {
			height = ev.BlockNumber
		}
		l.logger.Warn("[ConnectionError] block height unavailable, using last known head", map[string]string{
			"orderId": orderID,
			"height":  strconv.FormatUint(height, 10),
			"error":   err.Error(),
		})
	} else {
		l.observeHead(height)
	}

	// a confirmed payment is processed to completion even if the session ends meanwhile
	l.tracker.Observe(context.WithoutCancel(ctx), model.NewPayment(orderID, ev), ev.LogIndex, height)
}

func (l *Listener) onHeight(ctx context.Context, height uint64) {
	l.observeHead(height)
	if fired := l.tracker.OnBlock(ctx, height); fired > 0 {
		l.logger.Debug("[Listener][Block] confirmations reached", map[string]string{
			"height": strconv.FormatUint(height, 10),
			"fired":  strconv.Itoa(fired),
		})
	}
}

func (l *Listener) observeHead(height uint64) {
	l.mu.Lock()
	if height > l.head {
		l.head = height
	}
	head := l.head
	l.mu.Unlock()
	l.metrics.SetChainHead(head)
}

func (l *Listener) knownHead() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.head
}

func (l *Listener) activate(chainID, head uint64) {
	l.mu.Lock()
	l.chainID = chainID
	if head > l.head {
		l.head = head
	}
	l.mu.Unlock()
	l.metrics.SetChainHead(head)
	l.setState(StateActive)

	// a request left over from before this session is already satisfied
	select {
	case <-l.reconnectCh:
	default:
	}
	l.reconnectPending.Store(false)
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	prev := l.state
	l.state = s
	l.mu.Unlock()

	l.metrics.SetState(string(s), allStates)
	if prev != s {
		l.logger.Debug("[Listener][State] transition", map[string]string{
			"from": string(prev),
			"to":   string(s),
		})
	}
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max || next <= 0 {
		return max
	}
	return next
}

func streamErr(err error) error {
	if err == nil {
		return &chainfeed.ConnectionError{Op: "stream", Err: chainfeed.ErrStreamClosed}
	}
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// maskEndpoint keeps scheme and host; paths and queries usually carry API keys.
func maskEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "***"
	}
	masked := u.Scheme + "://" + u.Host
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		masked += "/***"
	}
	return masked
}
