package logx

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerWritesConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info().Int("depth", 3).Msg("search finished")

	out := buf.String()
	if !strings.Contains(out, "search finished") || !strings.Contains(out, "depth") {
		t.Errorf("unexpected log output %q", out)
	}
	if !strings.Contains(out, "logx_test.go:") {
		t.Errorf("caller missing from %q", out)
	}
}

func TestNewLoggerKeepsCallerFormat(t *testing.T) {
	NewLogger(io.Discard)

	orig := zerolog.CallerMarshalFunc
	t.Cleanup(func() { zerolog.CallerMarshalFunc = orig })
	zerolog.CallerMarshalFunc = func(uintptr, string, int) string { return "custom-caller" }

	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info().Msg("second logger")
	if !strings.Contains(buf.String(), "custom-caller") {
		t.Errorf("caller format replaced again: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"bogus": zerolog.InfoLevel,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
