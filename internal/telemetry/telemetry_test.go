package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/core/result"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

		logger.Info("dropped")
		logger.Warn("kept", slog.String("k", "v"))

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not one JSON line: %q", buf.String())
		}
		if entry["msg"] != "kept" || entry["k"] != "v" {
			t.Errorf("entry = %v", entry)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(config.LogConfig{Level: "info", Format: "text"}, &buf).Info("hello")
		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestMetrics_StepFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.StepFinished(context.Background(), "request", "origin_check", result.KindSuccess, time.Millisecond)
	m.StepFinished(context.Background(), "request", "origin_check", result.KindSuccess, time.Millisecond)
	m.StepFinished(context.Background(), "request", "preflight", result.KindInterrupt, time.Millisecond)

	if got := testutil.ToFloat64(m.steps.WithLabelValues("request", "origin_check", "success")); got != 2 {
		t.Errorf("origin_check successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.steps.WithLabelValues("request", "preflight", "interrupt")); got != 1 {
		t.Errorf("preflight interrupts = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestMetrics_EmailSent(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.EmailSent(nil)
	m.EmailSent(errors.New("down"))
	m.EmailSent(errors.New("down"))

	if got := testutil.ToFloat64(m.emails.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok = %v", got)
	}
	if got := testutil.ToFloat64(m.emails.WithLabelValues("error")); got != 2 {
		t.Errorf("error = %v", got)
	}
}

func TestInitTracer(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	shutdown, err := InitTracer(TracerOptions{}, logger)
	if err != nil {
		t.Fatalf("disabled InitTracer() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("disabled shutdown error = %v", err)
	}

	var buf bytes.Buffer
	shutdown, err = InitTracer(TracerOptions{Enabled: true, Writer: &buf}, logger)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
}
