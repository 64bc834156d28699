package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestWithRequestID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"valid", "req_01-abc", "req_01-abc"},
		{"empty dropped", "", ""},
		{"invalid chars dropped", "req 1;drop", ""},
		{"too long dropped", strings.Repeat("a", maxIDLen+1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRequestID(context.Background(), tt.id)
			assert.Equal(t, tt.want, RequestIDFromContext(ctx))
		})
	}
}

func TestWeekFromContext(t *testing.T) {
	_, ok := WeekFromContext(context.Background())
	assert.False(t, ok)

	wk, ok := WeekFromContext(WithWeek(context.Background(), 53, 2026))
	assert.True(t, ok)
	assert.Equal(t, WeekKey{Week: 53, Year: 2026}, wk)
}

func TestFromContext(t *testing.T) {
	// Missing logger falls back to nop.
	nop := FromContext(context.Background())
	assert.NotNil(t, nop)
	nop.Info(context.Background(), "discarded")

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Warn(ctx, "persist failed")

	tl.AssertLogged(t, zapcore.WarnLevel, "persist failed")
}

func TestSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) {
		c.Sampling.Enabled = true
		c.Sampling.Initial = 1
		c.Sampling.Thereafter = 0
	})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		logger.Info(ctx, "repeated info")
		logger.Error(ctx, "repeated error")
	}

	lines := decodeLines(t, buf)
	var infos, errs int
	for _, l := range lines {
		switch l["msg"] {
		case "repeated info":
			infos++
		case "repeated error":
			errs++
		}
	}
	assert.Equal(t, 1, infos)
	assert.Equal(t, 20, errs)
}
