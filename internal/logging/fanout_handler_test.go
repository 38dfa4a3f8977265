package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler().(NoopHandler); !ok {
		t.Fatal("expected noop handler when no handlers are given")
	}
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected noop handler when all handlers are nil")
	}
	single := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if got := newFanoutHandler(nil, single); got != single {
		t.Fatalf("expected single handler to be returned directly, got %T", got)
	}
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(info, debug)).With("component", "test")
	logger.Debug("debug line")
	logger.Info("info line")

	if strings.Contains(infoBuf.String(), "debug line") {
		t.Fatalf("info handler received debug record: %q", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "info line") || !strings.Contains(debugBuf.String(), "debug line") {
		t.Fatalf("unexpected output info=%q debug=%q", infoBuf.String(), debugBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "component=test") {
		t.Fatalf("expected attrs to propagate, got %q", debugBuf.String())
	}
	if !slog.New(newFanoutHandler(info, debug)).Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout to be enabled when any handler is")
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, extraBuf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&baseBuf, nil))
	logger := TeeLogger(base, slog.NewJSONHandler(&extraBuf, nil))
	logger.Info("hello", "k", "v")

	if !strings.Contains(baseBuf.String(), "hello") {
		t.Fatalf("base handler missing record: %q", baseBuf.String())
	}
	if !strings.Contains(extraBuf.String(), `"k":"v"`) {
		t.Fatalf("extra handler missing record: %q", extraBuf.String())
	}
}
