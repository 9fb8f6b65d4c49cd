package schedule

import (
	"fmt"
	"sort"
)

// Window is a contiguous bookable interval on a single calendar date,
// expressed in minutes since clinic-local midnight. FromOverride marks
// windows that owe any part of their extent to a one-off slot rather than a
// recurring rule; it is informational only.
type Window struct {
	Start        int
	End          int
	FromOverride bool
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", FormatClock(w.Start), FormatClock(w.End))
}

// ParseClock converts a zero-padded HH:MM wall-clock string to minutes since
// midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' ||
		!isClockDigit(s[0]) || !isClockDigit(s[1]) || !isClockDigit(s[3]) || !isClockDigit(s[4]) {
		return 0, fmt.Errorf("invalid clock value %q, want HH:MM", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

func isClockDigit(c byte) bool { return c >= '0' && c <= '9' }

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// mergeWindows collapses overlapping or adjacent windows into a minimal set of
// disjoint intervals, sorted ascending. Two windows merge when one's end
// reaches the other's start. A merged window inherits the override flag from
// any contributor that had it set.
func mergeWindows(windows []Window) []Window {
	if len(windows) == 0 {
		return nil
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			last.FromOverride = last.FromOverride || w.FromOverride
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// subtractWindow removes busy from each window in ws. Carving out the middle
// of a window yields two fragments; fragments keep the parent's override flag.
func subtractWindow(ws []Window, busyStart, busyEnd int) []Window {
	if busyStart >= busyEnd {
		return ws
	}

	var out []Window
	for _, w := range ws {
		if busyEnd <= w.Start || busyStart >= w.End {
			out = append(out, w)
			continue
		}
		if busyStart > w.Start {
			out = append(out, Window{Start: w.Start, End: busyStart, FromOverride: w.FromOverride})
		}
		if busyEnd < w.End {
			out = append(out, Window{Start: busyEnd, End: w.End, FromOverride: w.FromOverride})
		}
	}
	return out
}

// dropShortWindows discards fragments too small to hold a booking.
func dropShortWindows(ws []Window, minMinutes int) []Window {
	var out []Window
	for _, w := range ws {
		if w.End-w.Start >= minMinutes {
			out = append(out, w)
		}
	}
	return out
}
