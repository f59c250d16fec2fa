package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"carewatch.dev/carewatch/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		Context("with default config", func() {
			It("should create a non-nil logger", func() {
				log := logger.New(logger.DefaultConfig())
				Expect(log).NotTo(BeNil())
			})
		})

		Context("with nil config", func() {
			It("should create a non-nil logger with defaults", func() {
				log := logger.New(nil)
				Expect(log).NotTo(BeNil())
			})
		})

		Context("with JSON format", func() {
			It("should emit one JSON object per record", func() {
				var buf bytes.Buffer
				log := logger.New(&logger.Config{
					Output: &buf,
					Level:  slog.LevelInfo,
					Format: logger.FormatJSON,
				})
				log.Info("hello", "key", "value")

				var record map[string]any
				Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
				Expect(record).To(HaveKeyWithValue("msg", "hello"))
				Expect(record).To(HaveKeyWithValue("key", "value"))
			})
		})

		Context("with text format", func() {
			It("should emit logfmt-style output", func() {
				var buf bytes.Buffer
				log := logger.New(&logger.Config{
					Output: &buf,
					Level:  slog.LevelInfo,
					Format: logger.FormatText,
				})
				log.Info("hello")
				Expect(buf.String()).To(ContainSubstring("msg=hello"))
			})
		})

		Context("with a level threshold", func() {
			It("should suppress records below the level", func() {
				var buf bytes.Buffer
				log := logger.New(&logger.Config{
					Output: &buf,
					Level:  slog.LevelWarn,
				})
				log.Info("quiet")
				log.Warn("loud")

				out := buf.String()
				Expect(out).NotTo(ContainSubstring("quiet"))
				Expect(out).To(ContainSubstring("loud"))
			})
		})

		Context("with add source enabled", func() {
			It("should include the source position", func() {
				var buf bytes.Buffer
				log := logger.New(&logger.Config{
					Output:    &buf,
					AddSource: true,
				})
				log.Info("here")
				Expect(strings.Contains(buf.String(), "logger_test.go")).To(BeTrue())
			})
		})
	})

	Describe("NewDefault", func() {
		It("should create a non-nil logger with default settings", func() {
			log := logger.NewDefault()
			Expect(log).NotTo(BeNil())
		})
	})

	Describe("ParseLevel", func() {
		DescribeTable("should parse level strings correctly",
			func(input string, expected slog.Level) {
				Expect(logger.ParseLevel(input)).To(Equal(expected))
			},
			Entry("debug", "debug", slog.LevelDebug),
			Entry("info", "info", slog.LevelInfo),
			Entry("warn", "warn", slog.LevelWarn),
			Entry("warning alias", "warning", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
			Entry("unknown falls back to info", "chatty", slog.LevelInfo),
			Entry("empty falls back to info", "", slog.LevelInfo),
		)
	})
})
