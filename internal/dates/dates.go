package dates

import (
	"strings"
	"time"
)

// DayLayout is the fixed-width day key used across reports.
const DayLayout = "2006-01-02"

// TimestampLayout is the layout clock events are stored with.
const TimestampLayout = "2006-01-02 15:04:05"

// layouts are tried in order; the first successful parse wins.
var layouts = []string{
	"2006-01-02T15:04:05",
	TimestampLayout,
	DayLayout,
}

// Parse reads a timestamp or a bare date in local time. Unmatched or empty
// input returns ok=false; date-only input is midnight.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDay parses a YYYY-MM-DD key only.
func ParseDay(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(DayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Day truncates t to local midnight of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Key formats the calendar date of t as YYYY-MM-DD.
func Key(t time.Time) string {
	return t.Format(DayLayout)
}

// KeyOf returns the day portion of a stored timestamp string.
func KeyOf(timestamp string) string {
	if len(timestamp) > len(DayLayout) {
		return timestamp[:len(DayLayout)]
	}
	return timestamp
}

// IsWorkday reports whether t falls Monday through Friday.
func IsWorkday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WorkingDates lists every Monday-Friday date between start and end, both
// inclusive, in ascending order. Only the date portion of the bounds counts.
// A zero bound means "none" and yields no dates.
func WorkingDates(start, end time.Time) []time.Time {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	first, last := Day(start), Day(end)
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d) {
			out = append(out, d)
		}
	}
	return out
}
