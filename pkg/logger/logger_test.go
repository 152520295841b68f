package logger

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDisabledByDefault(t *testing.T) {
	if L().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should discard everything until enabled")
	}
}

func TestNewWritesLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zapcore.InfoLevel)

	l.Debug("hidden")
	l.Warn("request to server failed", zap.String("server", "10.0.0.1:80"))
	_ = l.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "request to server failed") {
		t.Errorf("missing warn entry: %q", out)
	}
	if !strings.Contains(out, "10.0.0.1:80") {
		t.Errorf("missing field: %q", out)
	}
}

func TestEnableIsIdempotent(t *testing.T) {
	t.Cleanup(func() { set(zap.NewNop()) })

	first := Enable()
	second := Enable()
	if first != second {
		t.Error("Enable should initialize the logger only once")
	}
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("enabled logger should accept debug entries")
	}
}
