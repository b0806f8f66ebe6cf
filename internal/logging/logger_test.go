package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if Level(42).String() != "UNKNOWN" {
		t.Error("unknown level name")
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "inkstorm", Now: fixedNow})
	l.WithComponent("manager").WithField("ext", "link").Info("built %d plugins", 3)

	want := "2024-05-06T07:08:09.000 [INFO] inkstorm: built 3 plugins {component=manager, ext=link}\n"
	if buf.String() != want {
		t.Errorf("line = %q\nwant   %q", buf.String(), want)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf, Now: fixedNow})
	child := l.WithField("k", "v")
	child.Info("hidden")
	child.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}

	// Level changes propagate to derived loggers.
	l.SetLevel(LevelDebug)
	child.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("derived logger ignored level change")
	}
	if !child.Enabled(LevelDebug) {
		t.Error("Enabled(LevelDebug) = false")
	}
}

func TestNopLogger(t *testing.T) {
	l := OrNop(nil)
	l.Error("nothing")
	if l.Enabled(LevelError) {
		t.Error("nop logger reports enabled")
	}
}
