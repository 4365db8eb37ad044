package cmd

import (
	"context"
	"log/slog"
	"testing"
)

func TestVerboseFlagEnablesDebugLogging(t *testing.T) {
	t.Cleanup(func() {
		verbose = false
		slog.SetLogLoggerLevel(slog.LevelInfo)
	})

	verbose = true
	rootCmd.PersistentPreRun(rootCmd, nil)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug logging not enabled with --verbose")
	}
}
