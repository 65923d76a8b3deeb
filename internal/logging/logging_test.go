package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFileSinkWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunes.log")
	log := New(Options{Level: zapcore.InfoLevel, File: path})

	log.Info("now playing", zap.String("track", "a.mp3"))
	if err := log.Sync(); err != nil {
		t.Logf("Sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "now playing") {
		t.Errorf("log file %q does not contain message", data)
	}
	if !strings.Contains(string(data), "INFO") {
		t.Errorf("log file %q does not contain level", data)
	}
}

func TestNewFileSinkRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunes.log")
	log := New(Options{Level: zapcore.WarnLevel, File: path})

	log.Info("quiet")
	log.Warn("loud")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "quiet") {
		t.Error("info entry written despite warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("warn entry missing")
	}
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	log := New(Options{Level: zapcore.DebugLevel})
	if log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("sink-less logger still enabled")
	}
}
