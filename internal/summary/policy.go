package summary

import (
	"fmt"
	"time"
)

// Policy holds the attendance rules applied by the Aggregator.
type Policy struct {
	// LateAfterMinutes is the minute of day past which an entry is late.
	LateAfterMinutes int
	AbsencePenalty   float64
	LatePenalty      float64
	// DefaultStart is used when neither the period nor the enrollment
	// provides a usable start date.
	DefaultStart string
	NoNameLabel  string
}

// DefaultPolicy returns the rules the reports were designed around.
func DefaultPolicy() Policy {
	return Policy{
		LateAfterMinutes: 8*60 + 15,
		AbsencePenalty:   5.0,
		LatePenalty:      2.0,
		DefaultStart:     "2025-10-01",
		NoNameLabel:      "Sin nombre",
	}
}

// ParseClock converts "HH:MM" into a minute of day.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
