// Package format renders sizes and timestamps for display.
package format

import (
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// TimeLayout is the absolute timestamp layout (YYYY-MM-DD HH:mm:ss).
const TimeLayout = "2006-01-02 15:04:05"

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// Bytes renders a byte count with B/KB/MB/GB units. KB is rounded to a
// whole number; MB and GB keep one decimal. Halves round up. Negative
// counts render as "-".
func Bytes(n float64) string {
	switch {
	case n < 0:
		return "-"
	case n < kib:
		return strconv.FormatFloat(n, 'f', -1, 64) + " B"
	case n < mib:
		return fixed(n/kib, 0) + " KB"
	case n < gib:
		return fixed(n/mib, 1) + " MB"
	default:
		return fixed(n/gib, 1) + " GB"
	}
}

// fixed formats x with d decimals, rounding halves away from zero.
func fixed(x float64, d int) string {
	p := math.Pow10(d)
	return strconv.FormatFloat(math.Floor(x*p+0.5)/p, 'f', d, 64)
}

// Size is Bytes for an int64.
func Size(n int64) string {
	return Bytes(float64(n))
}

// Time renders a unix-millisecond timestamp either relative to now
// ("3 minutes ago") or as an absolute local time.
func Time(ms int64, fromNow bool, now time.Time) string {
	t := time.UnixMilli(ms)
	if fromNow {
		return humanize.RelTime(t, now, "ago", "from now")
	}
	return t.Format(TimeLayout)
}
