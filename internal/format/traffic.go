// Package format renders traffic volumes and timestamps for console views.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

var trafficUnits = []string{"GB", "TB", "PB"}

// FormatTraffic renders a volume given in megabytes using the largest unit
// that keeps the value below 1024, stopping at PB.
func FormatTraffic(mb float64) string {
	if mb < 1024 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	value := mb
	for i, unit := range trafficUnits {
		value /= 1024
		if value < 1024 || i == len(trafficUnits)-1 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
	}
	return ""
}

// FormatBytes renders a volume given in bytes.
func FormatBytes(bytes float64) string {
	return FormatTraffic(bytes / (1024 * 1024))
}

// FormatTrafficRate renders a rate given in megabytes per hour.
func FormatTrafficRate(mbPerHour float64) string {
	return FormatTraffic(mbPerHour) + "/h"
}

// Percent clamps a percentage into [0, 100] for progress bars.
func Percent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Count renders a counter padded to two digits.
func Count(n int) string {
	return fmt.Sprintf("%02d", n)
}

// timestampLayouts are the layouts the panel uses for node timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// LastSeen renders a panel timestamp relative to now, e.g. "3 minutes ago".
// Timestamps without a zone are UTC. Unparseable input is returned unchanged.
func LastSeen(ts string, now time.Time) string {
	if ts == "" {
		return "never"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return humanize.RelTime(t, now, "ago", "from now")
		}
	}
	return ts
}
