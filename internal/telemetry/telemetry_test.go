package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), config.Default().Telemetry, "test")
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("weekpulse"))
	assert.NotNil(t, tel.Meter("weekpulse"))
	assert.False(t, tel.IsEnabled())
	assert.Nil(t, tel.LoggerProvider())

	h := tel.Health()
	assert.True(t, h.Healthy)
	assert.False(t, h.Degraded)
	assert.False(t, h.Enabled)

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutServiceName(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	cfg.ServiceName = ""

	_, err := New(context.Background(), cfg, "test")
	assert.Error(t, err)
}

func TestNew_EnabledHTTPProtocol(t *testing.T) {
	// Exporter construction is lazy, so an unreachable endpoint still yields
	// working providers.
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	cfg.Protocol = "http/protobuf"
	cfg.Endpoint = "http://127.0.0.1:1"
	cfg.ExportInterval = config.Duration(time.Hour)

	tel, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tel.Shutdown(ctx)
	assert.False(t, tel.IsEnabled())
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.False(t, tel.IsEnabled())
	assert.True(t, tel.Health().Degraded)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTestTelemetry_RecordsSpansAndCounters(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("weekpulse").Start(ctx, "insight.generate")
	span.SetAttributes(attribute.String("engine", "rule-based"))
	span.End()

	counter, err := tt.Meter("weekpulse").Int64Counter("weekpulse.test.count")
	require.NoError(t, err)
	counter.Add(ctx, 2)
	counter.Add(ctx, 3)

	tt.AssertSpanAttribute(t, "insight.generate", "engine", "rule-based")

	v, ok := tt.SumValue(ctx, "weekpulse.test.count")
	require.True(t, ok)
	assert.Equal(t, int64(5), v)
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("http://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("otel:4318"))
}
