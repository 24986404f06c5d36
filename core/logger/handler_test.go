package logger

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func captureLine(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	log := slog.New(handler).With("component", component)
	LogEvent(ctx, log, level, event, attrs...)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithEventMeta(ctx, "whatsapp", "971500000004", "wamid.1")

	line := captureLine(t, formatKV, ctx, "engine", slog.LevelInfo, "handler.handled",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=engine", "event=handler.handled", "status=ok", "rid=rid-123", "channel=whatsapp", "message_id=wamid.1", "sender="}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithTenant(ctx, "premium")

	line := captureLine(t, formatJSON, ctx, "outbound", slog.LevelError, "send.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "TEST_FAIL"),
	)
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"outbound"`, `"event":"send.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"tenant":"premium"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerMasksSender(t *testing.T) {
	ctx := WithEventMeta(context.Background(), "whatsapp", "971500000004", "")
	line := captureLine(t, formatKV, ctx, "engine", slog.LevelInfo, "mask.test")
	if strings.Contains(line, "971500000004") {
		t.Fatalf("raw sender leaked: %s", line)
	}
	if !strings.Contains(line, "sender=********0004") {
		t.Fatalf("expected masked sender, got %s", line)
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	line := captureLine(t, formatKV, WithRID(context.Background(), rawRID), "app", slog.LevelInfo, "rid.test",
		slog.String("status", "ok"),
	)
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	rawRID := "12:34:56"
	line := captureLine(t, formatJSON, WithRID(context.Background(), rawRID), "app", slog.LevelInfo, "rid.test",
		slog.String("status", "ok"),
	)
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano to be present in JSON output, got %s", line)
	}
}

func TestMaskSender(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"1234":         "1234",
		"tg:987654321": "********4321",
		" 971500 ":     "**1500",
	}
	for in, want := range cases {
		if got := MaskSender(in); got != want {
			t.Fatalf("MaskSender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	prev := L
	L = nil
	defer func() { L = prev }()
	Info(context.Background(), "engine", "noop.test", slog.String("status", "ok"))
}

func TestParseTraceparent(t *testing.T) {
	tests := []struct {
		in     string
		trace  string
		span   string
		wantOK bool
	}{
		{in: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", trace: "4bf92f3577b34da6a3ce929d0e0e4736", span: "00f067aa0ba902b7", wantOK: true},
		{in: "00-00000000000000000000000000000000-00f067aa0ba902b7-01"},
		{in: "00-4bf92f3577b34da6a3ce929d0e0e4736-01"},
		{in: ""},
	}
	for _, tt := range tests {
		trace, span, ok := ParseTraceparent(tt.in)
		if ok != tt.wantOK || trace != tt.trace || span != tt.span {
			t.Fatalf("ParseTraceparent(%q) = %q, %q, %v", tt.in, trace, span, ok)
		}
	}
}
