package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0%", FormatRate(0))
	assert.Equal(t, "67%", FormatRate(67))
	assert.Equal(t, "100%", FormatRate(100))
}

func TestFormatTrend(t *testing.T) {
	tests := []struct {
		name     string
		points   int
		expected string
	}{
		{"up", 5, "▲ +5pt"},
		{"down", -3, "▼ -3pt"},
		{"flat", 0, "■ 0pt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTrend(tt.points))
		})
	}
}

func TestFormatGrowth(t *testing.T) {
	tests := []struct {
		name     string
		delta    float64
		expected string
	}{
		{"whole", 12, "+12"},
		{"fraction", 2.5, "+2.5"},
		{"negative", -4, "-4"},
		{"zero", 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatGrowth(tt.delta))
		})
	}
}

func TestFormatWeek(t *testing.T) {
	assert.Equal(t, "2025-W03", FormatWeek(3, 2025))
	assert.Equal(t, "2024-W52", FormatWeek(52, 2024))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", FormatAge(time.Time{}, now))
	assert.Equal(t, "5m", FormatAge(now.Add(-5*time.Minute), now))
	assert.Equal(t, "2h 30m", FormatAge(now.Add(-150*time.Minute), now))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"minutes_only", 300, "5m"},
		{"zero", 0, "0m"},
		{"hours_and_minutes", 3900, "1h 5m"},
		{"exact_hour", 3600, "1h 0m"},
		{"seconds_dropped", 59, "0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
		})
	}
}
