package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextCarriage verifies ToContext/FromContext round-trips a scoped
// logger and that a bare context falls back to the global logger.
func TestContextCarriage(t *testing.T) {
	t.Parallel()

	scoped := zaptest.NewLogger(t).Sugar()
	ctx := ToContext(context.Background(), scoped)

	require.Same(t, scoped, FromContext(ctx))
	require.Same(t, Logger(), FromContext(context.Background()))

	// WithName and WithKV derive new loggers, never mutate the carried one.
	named := WithName(ctx, "test")
	require.NotSame(t, scoped, FromContext(named))

	keyed := WithKV(ctx, "k", "v")
	require.NotSame(t, scoped, FromContext(keyed))
}
