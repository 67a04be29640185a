package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	l := slog.New(h)
	return NewSlogLogger(l), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "collection", "items")
	log.Info(ctx, "inf", "entries", 2)
	log.Warn(ctx, "wrn", "attempt", 3)
	log.Error(ctx, "err", "docId", "x")

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", "dbg", "collection", "items"},
		{"INFO", "inf", "entries", "2"},
		{"WARN", "wrn", "attempt", "3"},
		{"ERROR", "err", "docId", "x"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log2 := log.With("component", "sync-engine", "device", "reg-01")
	log2.Info(ctx, "cycle done", "pushed", 4)

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		"msg=\"cycle done\"",
		"component=sync-engine",
		"device=reg-01",
		"pushed=4",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Info(ctx, "ctx-ok")
	log.Debug(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}

func TestNewDiscardLogger(t *testing.T) {
	var log Logger = NewDiscardLogger()

	ctx := context.Background()
	log.Info(ctx, "dropped", "k", "v")
	log.With("component", "x").Error(ctx, "dropped too")
}
