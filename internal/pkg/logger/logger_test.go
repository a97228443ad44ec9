package logger

import (
	"bytes"
	"strings"
	"testing"

	"dingbot/internal/platform/config"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "INFO", want: zerolog.InfoLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	l.Info().Msg("dropped")
	l.Warn().Str("robot", "ops").Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"robot":"ops"`) || !strings.Contains(out, `"message":"kept"`) {
		t.Errorf("New() output = %s, want JSON warn line", out)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	l.Debug().Str("robot", "ops").Msg("hello")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("New() text format wrote JSON: %s", out)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "robot=ops") {
		t.Errorf("New() output = %q, want console line", out)
	}
}
