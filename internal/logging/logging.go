// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rollbar/rollbar-go"
)

// Config controls log output and error reporting.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"

	// Warnings and errors are also sent to Rollbar when RollbarToken is set.
	RollbarToken string
	Environment  string
	Version      string
}

// DefaultConfig returns text logging at INFO without error reporting.
func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Format: "text", Environment: "development"}
}

// ConfigFromEnv overlays KHIAN_LOG_LEVEL, KHIAN_LOG_FORMAT,
// KHIAN_ROLLBAR_TOKEN and KHIAN_ENV on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("KHIAN_LOG_LEVEL"); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			cfg.Level = lvl
		}
	}
	if v := strings.ToLower(os.Getenv("KHIAN_LOG_FORMAT")); v == "json" || v == "text" {
		cfg.Format = v
	}
	cfg.RollbarToken = os.Getenv("KHIAN_ROLLBAR_TOKEN")
	if v := os.Getenv("KHIAN_ENV"); v != "" {
		cfg.Environment = v
	}
	return cfg
}

// Reporter receives warn and error records.
type Reporter interface {
	Report(level slog.Level, msg string, extras map[string]any)
	Flush()
}

// New builds a logger writing to w. A nil reporter disables forwarding.
func New(w io.Writer, cfg Config, rep Reporter) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if rep != nil {
		h = &reportingHandler{next: h, rep: rep}
	}
	return slog.New(h)
}

// Setup installs the default logger on stderr and returns a function that
// flushes pending reports.
func Setup(cfg Config) func() {
	var rep Reporter
	if cfg.RollbarToken != "" {
		rep = NewRollbarReporter(cfg)
	}
	slog.SetDefault(New(os.Stderr, cfg, rep))
	return func() {
		if rep != nil {
			rep.Flush()
		}
	}
}

// reportingHandler forwards WARN and above to a Reporter.
type reportingHandler struct {
	next  slog.Handler
	rep   Reporter
	attrs []slog.Attr
	group string
}

func (h *reportingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *reportingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		extras := make(map[string]any, len(h.attrs)+r.NumAttrs())
		for _, a := range h.attrs {
			put(extras, a)
		}
		r.Attrs(func(a slog.Attr) bool {
			a.Key = h.key(a.Key)
			put(extras, a)
			return true
		})
		h.rep.Report(r.Level, r.Message, extras)
	}
	return h.next.Handle(ctx, r)
}

func (h *reportingHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func put(m map[string]any, a slog.Attr) {
	v := a.Value.Resolve().Any()
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	m[a.Key] = v
}

func (h *reportingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	all := append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.key(a.Key)
		all = append(all, a)
	}
	return &reportingHandler{next: h.next.WithAttrs(attrs), rep: h.rep, attrs: all, group: h.group}
}

func (h *reportingHandler) WithGroup(name string) slog.Handler {
	g := name
	if h.group != "" {
		g = h.group + "." + name
	}
	return &reportingHandler{next: h.next.WithGroup(name), rep: h.rep, attrs: h.attrs, group: g}
}

// RollbarReporter sends records through the global Rollbar client.
type RollbarReporter struct{}

// NewRollbarReporter configures the Rollbar client from cfg.
func NewRollbarReporter(cfg Config) *RollbarReporter {
	rollbar.SetToken(cfg.RollbarToken)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.Version)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	return &RollbarReporter{}
}

func (RollbarReporter) Report(level slog.Level, msg string, extras map[string]any) {
	if level >= slog.LevelError {
		rollbar.Error(msg, extras)
		return
	}
	rollbar.Warning(msg, extras)
}

// Flush waits for queued reports, giving up after a few seconds.
func (RollbarReporter) Flush() {
	done := make(chan struct{})
	go func() {
		rollbar.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}
