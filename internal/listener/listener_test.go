package listener

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dwarvesf/payment-listener/internal/confirmation"
	"github.com/dwarvesf/payment-listener/internal/monitoring"
	"github.com/dwarvesf/payment-listener/internal/types/environments"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

func testConfig(probe time.Duration) *config.AppConfig {
	return &config.AppConfig{
		Listener: config.ListenerConfig{
			RPCEndpoint:       "wss://node.example.org/v2/secret",
			TokenAddress:      "0x8ccedbAe4916b79da7F3F612EfB2EB93A2bFD6cF",
			NetworkName:       "sepolia",
			MinConfirmations:  1,
			ProbeInterval:     probe,
			ProbeTimeout:      time.Second,
			ReconnectDelay:    10 * time.Millisecond,
			ReconnectMaxDelay: 40 * time.Millisecond,
			DedupCacheSize:    128,
		},
	}
}

var _ = Describe("Listener", func() {
	var (
		feed     *fakeFeed
		dialer   *fakeDialer
		matcher  *fakeMatcher
		proc     *recordingProcessor
		l        *Listener
		stopped  chan struct{}
		startErr error
	)

	start := func(minConfirmations uint64, probe time.Duration) {
		log := logger.New(environments.Test)
		metrics := monitoring.NewListenerMetrics()
		tracker := confirmation.New(minConfirmations, proc, log, metrics)

		listener, err := New(testConfig(probe), dialer, matcher, tracker, metrics, log)
		Expect(err).NotTo(HaveOccurred())
		l = listener.(*Listener)

		stopped = make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(stopped)
			startErr = l.Start(context.Background())
		}()
		Eventually(func() State { return l.Status().State }).Should(Equal(StateActive))
	}

	state := func() State { return l.Status().State }
	pending := func() int { return l.Status().PendingWatches }

	BeforeEach(func() {
		feed = newFakeFeed(100)
		dialer = &fakeDialer{queue: []*fakeFeed{feed}}
		matcher = newFakeMatcher("o1", "o2")
		proc = &recordingProcessor{matcher: matcher}
		l = nil
	})

	AfterEach(func() {
		if l != nil {
			l.Stop()
			Eventually(stopped).Should(BeClosed())
		}
	})

	Describe("connecting", func() {
		It("should become active and report chain status", func() {
			start(1, time.Hour)

			status := l.Status()
			Expect(status.ChainID).To(Equal(uint64(testChainID)))
			Expect(status.ChainHead).To(Equal(uint64(100)))
			Expect(status.Network).To(Equal("sepolia"))
			Expect(status.Reconnects).To(BeZero())
			Expect(status.LastEventAt).To(BeNil())
		})

		It("should retry failed dials until the node answers", func() {
			dialer.failures = 2
			start(1, time.Hour)

			Expect(dialer.dialCount()).To(Equal(3))
			Expect(l.Status().Reconnects).To(Equal(int64(2)))
		})
	})

	Describe("transfers", func() {
		It("should process a transfer that already has enough confirmations", func() {
			start(1, time.Hour)

			feed.transfers <- transfer("0xaa", 100)

			Eventually(proc.orders).Should(Equal([]string{"o1"}))
			Expect(pending()).To(BeZero())
			Expect(l.Status().LastEventAt).NotTo(BeNil())
		})

		It("should keep matching transfers while a confirmed payment is still processing", func() {
			proc.block = make(chan struct{})
			start(1, time.Hour)

			feed.transfers <- transfer("0xaa", 100)
			feed.transfers <- transfer("0xbb", 100)

			Eventually(matcher.callCount).Should(Equal(2))
			Expect(matcher.excluded()).To(ContainElement("o1"))
			Expect(proc.orders()).To(BeEmpty())

			close(proc.block)
			Eventually(proc.orders).Should(ConsistOf("o1", "o2"))
		})

		It("should wait for the confirmation depth and fire exactly once", func() {
			start(3, time.Hour)

			feed.transfers <- transfer("0xaa", 100)
			Eventually(pending).Should(Equal(1))

			feed.heights <- 101
			Consistently(proc.orders, 50*time.Millisecond).Should(BeEmpty())

			feed.heights <- 102
			Eventually(proc.orders).Should(Equal([]string{"o1"}))

			feed.heights <- 103
			feed.heights <- 104
			Consistently(proc.orders, 50*time.Millisecond).Should(HaveLen(1))
			Expect(l.Status().ChainHead).To(Equal(uint64(104)))
		})

		It("should give identical transfers successive orders while they confirm", func() {
			start(3, time.Hour)

			feed.transfers <- transfer("0xaa", 100)
			feed.transfers <- transfer("0xbb", 100)
			Eventually(pending).Should(Equal(2))
			Expect(matcher.excluded()).To(Equal([]string{"o1"}))

			feed.heights <- 102
			Eventually(proc.orders).Should(ConsistOf("o1", "o2"))
		})

		It("should ignore a redelivered transfer", func() {
			start(1, time.Hour)

			feed.transfers <- transfer("0xaa", 100)
			feed.transfers <- transfer("0xaa", 100)

			Eventually(proc.orders).Should(HaveLen(1))
			Consistently(matcher.callCount, 50*time.Millisecond).Should(Equal(1))
		})

		It("should drop transfers that match no order", func() {
			start(1, time.Hour)

			ev := transfer("0xaa", 100)
			ev.To = "0x0000000000000000000000000000000000000bad"
			feed.transfers <- ev

			Eventually(matcher.callCount).Should(Equal(1))
			Consistently(proc.orders, 50*time.Millisecond).Should(BeEmpty())
			Expect(pending()).To(BeZero())
		})
	})

	Describe("reconnecting", func() {
		It("should cancel pending watches when the stream breaks and leave the order pending", func() {
			next := newFakeFeed(101)
			dialer.queue = append(dialer.queue, next)
			start(3, time.Hour)

			feed.transfers <- transfer("0xaa", 100)
			Eventually(pending).Should(Equal(1))

			feed.killTransfers <- errors.New("websocket: close 1006")

			Eventually(dialer.dialCount).Should(Equal(2))
			Eventually(state).Should(Equal(StateActive))
			Expect(pending()).To(BeZero())
			Expect(l.Status().Reconnects).To(Equal(int64(1)))
			Expect(feed.closed.Load()).To(BeTrue())
			Expect(proc.orders()).To(BeEmpty())
			Expect(matcher.isPaid("o1")).To(BeFalse())

			By("observing the same transfer again if the new session redelivers it")
			next.transfers <- transfer("0xaa", 100)
			Eventually(pending).Should(Equal(1))
		})

		It("should reconnect when the liveness probe fails", func() {
			dialer.queue = append(dialer.queue, newFakeFeed(100))
			start(1, 20*time.Millisecond)

			feed.probeErr.Store(true)

			Eventually(dialer.dialCount).Should(Equal(2))
			Eventually(state).Should(Equal(StateActive))
			Expect(feed.closed.Load()).To(BeTrue())
		})

		It("should allow one triggered reconnect at a time", func() {
			dialer.queue = append(dialer.queue, newFakeFeed(100), newFakeFeed(100))
			start(1, time.Hour)

			Expect(l.TriggerReconnect()).To(BeTrue())
			Expect(l.TriggerReconnect()).To(BeFalse())

			Eventually(dialer.dialCount).Should(Equal(2))
			Eventually(state).Should(Equal(StateActive))
			Expect(l.TriggerReconnect()).To(BeTrue())
			Eventually(dialer.dialCount).Should(Equal(3))
		})
	})

	Describe("stopping", func() {
		It("should tear down and end in the stopped state", func() {
			start(3, time.Hour)
			feed.transfers <- transfer("0xaa", 100)
			Eventually(pending).Should(Equal(1))

			l.Stop()

			Eventually(stopped).Should(BeClosed())
			Expect(startErr).NotTo(HaveOccurred())
			Expect(state()).To(Equal(StateStopped))
			Expect(feed.closed.Load()).To(BeTrue())
			Expect(pending()).To(BeZero())
			Expect(l.TriggerReconnect()).To(BeFalse())
			Expect(l.Start(context.Background())).To(MatchError(errAlreadyStarted))
		})
	})

	Describe("before start", func() {
		It("should refuse to reconnect", func() {
			listener, err := New(testConfig(time.Hour), dialer, matcher,
				confirmation.New(1, proc, logger.New(environments.Test), monitoring.NewListenerMetrics()),
				monitoring.NewListenerMetrics(), logger.New(environments.Test))
			Expect(err).NotTo(HaveOccurred())

			Expect(listener.TriggerReconnect()).To(BeFalse())
			Expect(listener.Status().State).To(Equal(StateDisconnected))
		})
	})
})

var _ = Describe("helpers", func() {
	DescribeTable("nextDelay",
		func(current, max, want time.Duration) {
			Expect(nextDelay(current, max)).To(Equal(want))
		},
		Entry("doubles", time.Second, time.Minute, 2*time.Second),
		Entry("caps", 40*time.Second, time.Minute, time.Minute),
		Entry("fixed when base equals max", 5*time.Second, 5*time.Second, 5*time.Second),
	)

	DescribeTable("maskEndpoint",
		func(endpoint, want string) {
			Expect(maskEndpoint(endpoint)).To(Equal(want))
		},
		Entry("hides api key path", "wss://eth-sepolia.g.alchemy.com/v2/abc123", "wss://eth-sepolia.g.alchemy.com/***"),
		Entry("keeps bare host", "ws://localhost:8546", "ws://localhost:8546"),
		Entry("garbage", "not a url", "***"),
	)
})
