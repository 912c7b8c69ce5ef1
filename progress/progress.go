// Package progress defines the byte-level progress contract between the
// transfer engine and whoever is watching it, plus a console reporter.
package progress

import "fmt"

// Snapshot is a point-in-time view of a running transfer. Total is 0 when the
// remote size is unknown. ETASeconds is 0 when the speed is zero or the total
// is unknown.
type Snapshot struct {
	Bytes      int64
	Total      int64
	SpeedBps   float64
	ETASeconds float64
}

// Func receives whole-transfer progress snapshots. Implementations may be
// called from the downloading goroutine at chunk granularity.
type Func func(Snapshot)

// SegmentFunc receives per-segment progress during a segmented download:
// the segment id, bytes received so far, the segment's quota, and the
// current speed. It may be invoked concurrently by multiple workers.
type SegmentFunc func(id int, received, quota int64, speedBps float64)

// FormatBytes formats a byte count as a human-readable string.
// A negative count means the size is unknown.
func FormatBytes(b int64) string {
	if b < 0 {
		return "?"
	}
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)
	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ParseBytes parses a human-readable byte string such as "64KB" or "4MB".
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	switch {
	case hasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	return int64(value * float64(multiplier)), nil
}

// FormatETA formats a remaining-time estimate in seconds as hh:mm:ss.
// Zero or negative estimates render as unknown.
func FormatETA(seconds float64) string {
	if seconds <= 0 {
		return "--:--:--"
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
