package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level slog.Leveler) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(NewCLIHandler(&buf, level)), &buf
}

func TestCLIHandler_Colors(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		color string
	}{
		{"info", func(l *slog.Logger) { l.Info("evaluation complete") }, colorGreen},
		{"warn", func(l *slog.Logger) { l.Warn("run history unavailable") }, colorYellow},
		{"error", func(l *slog.Logger) { l.Error("request failed") }, colorRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(slog.LevelInfo)
			tt.log(logger)

			out := buf.String()
			assert.True(t, len(out) > len(tt.color) && out[:len(tt.color)] == tt.color, "got %q", out)
			assert.Contains(t, out, colorReset)
		})
	}
}

func TestCLIHandler_Levels(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		log    func(*slog.Logger)
		logged bool
	}{
		{"debug hidden at info", slog.LevelInfo, func(l *slog.Logger) { l.Debug("split") }, false},
		{"info shown at info", slog.LevelInfo, func(l *slog.Logger) { l.Info("server started") }, true},
		{"debug shown at debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("split") }, true},
		{"warn hidden at error", slog.LevelError, func(l *slog.Logger) { l.Warn("slow fit") }, false},
		{"error shown at error", slog.LevelError, func(l *slog.Logger) { l.Error("fatal error") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(tt.level)
			tt.log(logger)
			assert.Equal(t, tt.logged, buf.Len() > 0)
		})
	}
}

func TestCLIHandler_Format(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelInfo)
	logger.Info("evaluation complete", "family", "logistic", "auc", 0.81)
	assert.Contains(t, buf.String(), "evaluation complete: family=logistic auc=0.81")

	buf.Reset()
	logger.Info("no attributes")
	assert.Contains(t, buf.String(), "no attributes"+colorReset)
}

func TestCLIHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHandler(&buf, slog.LevelInfo)
	assert.Equal(t, h, h.WithAttrs(nil))

	slog.New(h).With("batch", "b-1").Info("runs recorded", "count", 3)
	assert.Contains(t, buf.String(), "runs recorded: batch=b-1 count=3")

	buf.Reset()
	slog.New(h).Info("unscoped")
	assert.NotContains(t, buf.String(), "batch=")
}

func TestCLIHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHandler(&buf, slog.LevelInfo)

	assert.Equal(t, h, h.WithGroup(""))
	require.NotEqual(t, h, h.WithGroup("server"))

	slog.New(h).WithGroup("server").Info("server started")
	assert.Contains(t, buf.String(), "[server] server started")

	buf.Reset()
	slog.New(h).WithGroup("server").WithGroup("api").Info("request", "path", "/api/evaluate")
	assert.Contains(t, buf.String(), "[server.api] request: path=/api/evaluate")

	buf.Reset()
	slog.New(h).Info("plain")
	assert.NotContains(t, buf.String(), "] plain")
}

func TestCLIHandler_DynamicLevel(t *testing.T) {
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelError)
	logger, buf := newTestLogger(lvl)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	lvl.Set(slog.LevelInfo)
	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewCLILogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		assert.NotNil(t, NewCLILogger(lvl), lvl)
	}
}

func TestSetDefaultCLILogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	ctx := context.Background()

	SetDefaultCLILogger("warn", false)
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelWarn))

	SetDefaultCLILogger("error", true)
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}
