package logger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ = Describe("Logger Environment", func() {
	type expected struct {
		level       zapcore.Level
		development bool
		quiet       bool
		encoding    string
		toStdout    bool
	}

	DescribeTable("per-environment zap config",
		func(build func() zap.Config, want expected) {
			cfg := build()

			Expect(cfg.Level.Level()).To(Equal(want.level))
			Expect(cfg.Development).To(Equal(want.development))
			Expect(cfg.DisableCaller).To(Equal(want.quiet))
			Expect(cfg.DisableStacktrace).To(Equal(want.quiet))
			Expect(cfg.Encoding).To(Equal(want.encoding))
			if want.toStdout {
				Expect(cfg.OutputPaths).To(Equal([]string{"stdout"}))
				Expect(cfg.ErrorOutputPaths).To(Equal([]string{"stderr"}))
			} else {
				Expect(cfg.OutputPaths).To(BeEmpty())
				Expect(cfg.ErrorOutputPaths).To(BeEmpty())
			}
		},
		Entry("production", newProductionLoggerConfig, expected{zap.InfoLevel, false, false, "json", true}),
		Entry("staging", newStagingLoggerConfig, expected{zap.InfoLevel, false, true, "json", true}),
		Entry("development", newDevelopmentLoggerConfig, expected{zap.DebugLevel, true, true, "console", true}),
		Entry("test", newTestLoggerConfig, expected{zap.InfoLevel, false, false, "json", false}),
	)

	It("stamps production entries with an ISO8601 timestamp key", func() {
		cfg := newProductionLoggerConfig()
		Expect(cfg.EncoderConfig.TimeKey).To(Equal("timestamp"))
	})
})
