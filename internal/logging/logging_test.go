package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		quiet   zapcore.Level
	}{
		{level: "", enabled: zapcore.InfoLevel, quiet: zapcore.DebugLevel},
		{level: "debug", enabled: zapcore.DebugLevel, quiet: zapcore.DebugLevel - 1},
		{level: "warn", enabled: zapcore.WarnLevel, quiet: zapcore.InfoLevel},
	}
	for _, tc := range tests {
		logger, err := New(tc.level)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.level, err)
		}
		if !logger.Core().Enabled(tc.enabled) {
			t.Errorf("New(%q): %s not enabled", tc.level, tc.enabled)
		}
		if logger.Core().Enabled(tc.quiet) {
			t.Errorf("New(%q): %s enabled", tc.level, tc.quiet)
		}
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Error("New(\"loud\") succeeded, want error")
	}
}
