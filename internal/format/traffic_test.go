package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTraffic(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"zero", 0, "0.00 MB"},
		{"below gb", 1023.5, "1023.50 MB"},
		{"gb boundary", 1024, "1.00 GB"},
		{"gb", 1536, "1.50 GB"},
		{"tb boundary", 1024 * 1024, "1.00 TB"},
		{"pb boundary", 1024 * 1024 * 1024, "1.00 PB"},
		{"beyond pb", 1024 * 1024 * 1024 * 2048, "2048.00 PB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTraffic(tt.in))
		})
	}
}

func TestFormatBytesAndRate(t *testing.T) {
	assert.Equal(t, "1.00 MB", FormatBytes(1024*1024))
	assert.Equal(t, "1.00 GB", FormatBytes(1024*1024*1024))
	assert.Equal(t, "12.00 MB/h", FormatTrafficRate(12))
}

func TestPercentAndCount(t *testing.T) {
	assert.Equal(t, 0.0, Percent(-3))
	assert.Equal(t, 100.0, Percent(140))
	assert.Equal(t, 42.5, Percent(42.5))
	assert.Equal(t, "07", Count(7))
	assert.Equal(t, "123", Count(123))
}

func TestLastSeen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "never", LastSeen("", now))
	assert.Equal(t, "3 minutes ago", LastSeen("2026-03-01T11:56:30.5", now))
	assert.Equal(t, "2 hours ago", LastSeen("2026-03-01T10:00:00Z", now))
	assert.Equal(t, "not-a-date", LastSeen("not-a-date", now))
}
