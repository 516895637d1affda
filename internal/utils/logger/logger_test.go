package logger

import (
	"bytes"
	"encoding/json"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwarvesf/payment-listener/internal/types/environments"
)

type fatalHook struct {
	called bool
}

func (h *fatalHook) OnWrite(_ *zapcore.CheckedEntry, _ []zapcore.Field) {
	h.called = true
}

func bufferLogger(level zapcore.Level, opts ...zap.Option) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		level,
	)
	return &Logger{wrappedLogger: zap.New(core, opts...)}, buf
}

func decodeLine(buf *bytes.Buffer) map[string]interface{} {
	entry := map[string]interface{}{}
	Expect(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry)).To(Succeed())
	return entry
}

var _ = Describe("Logger", func() {
	DescribeTable("#New builds a logger for every environment",
		func(env environments.Environment, debugEnabled bool) {
			l := New(env)
			Expect(l).NotTo(BeNil())
			Expect(l.wrappedLogger.Core().Enabled(zapcore.InfoLevel)).To(BeTrue())
			Expect(l.wrappedLogger.Core().Enabled(zapcore.DebugLevel)).To(Equal(debugEnabled))
		},
		Entry("production", environments.Production, false),
		Entry("staging", environments.Staging, false),
		Entry("development", environments.Development, true),
		Entry("test", environments.Test, false),
		Entry("unknown falls back to production", environments.Environment("qa"), false),
	)

	Describe("levels", func() {
		It("writes the message with its fields", func() {
			l, buf := bufferLogger(zap.DebugLevel)

			l.Warn("[Listener][handleTransfer] height lookup failed", map[string]string{
				"txHash": "0xabc",
			})

			entry := decodeLine(buf)
			Expect(entry["level"]).To(Equal("warn"))
			Expect(entry["msg"]).To(Equal("[Listener][handleTransfer] height lookup failed"))
			Expect(entry["txHash"]).To(Equal("0xabc"))
		})

		It("drops entries below the configured level", func() {
			l, buf := bufferLogger(zap.InfoLevel)

			l.Debug("noise")
			Expect(buf.Len()).To(BeZero())

			l.Error("[ConnectionError] dial failed")
			Expect(decodeLine(buf)["level"]).To(Equal("error"))
		})

		It("uses only the first field map", func() {
			l, buf := bufferLogger(zap.InfoLevel)

			l.Info("paid", map[string]string{"orderId": "o1"}, map[string]string{"ignored": "x"})

			entry := decodeLine(buf)
			Expect(entry).To(HaveKeyWithValue("orderId", "o1"))
			Expect(entry).NotTo(HaveKey("ignored"))
		})
	})

	Describe("#With", func() {
		It("returns a child logger carrying the fields", func() {
			l, buf := bufferLogger(zap.InfoLevel)

			child := l.With(map[string]string{"network": "sepolia"})
			child.Info("hello")

			Expect(child).NotTo(BeIdenticalTo(l))
			entry := decodeLine(buf)
			Expect(entry).To(HaveKeyWithValue("network", "sepolia"))
			Expect(entry).To(HaveKeyWithValue("msg", "hello"))
		})
	})

	Describe("#Fatal", func() {
		It("runs the fatal hook instead of exiting", func() {
			hook := &fatalHook{}
			l, buf := bufferLogger(zap.InfoLevel, zap.WithFatalHook(hook))

			l.Fatal("[server][Init] invalid configuration", map[string]string{"error": "missing rpc"})

			Expect(hook.called).To(BeTrue())
			Expect(decodeLine(buf)["error"]).To(Equal("missing rpc"))
		})
	})

	Describe("#transformStrMapToFields", func() {
		It("maps every entry to a string field", func() {
			fields := transformStrMapToFields(map[string]string{
				"orderId": "o1",
				"txHash":  "0xabc",
			})
			sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })

			Expect(fields).To(Equal([]zap.Field{
				zap.String("orderId", "o1"),
				zap.String("txHash", "0xabc"),
			}))
		})

		It("returns an empty slice for nil input", func() {
			Expect(transformStrMapToFields(nil)).To(BeEmpty())
		})
	})
})
