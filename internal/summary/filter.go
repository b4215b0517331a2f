package summary

import (
	"errors"
	"strings"

	"attendancereport/internal/dates"
)

var (
	ErrInvalidFrom = errors.New("from date must be YYYY-MM-DD")
	ErrInvalidTo   = errors.New("to date must be YYYY-MM-DD")
	ErrRangeOrder  = errors.New("from date must not be after to date")
)

// ValidateRange checks optional YYYY-MM-DD bounds. Blank bounds are open.
func ValidateRange(from, to string) error {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	var fromDay, toDay string
	if from != "" {
		d, ok := dates.ParseDay(from)
		if !ok {
			return ErrInvalidFrom
		}
		fromDay = dates.Key(d)
	}
	if to != "" {
		d, ok := dates.ParseDay(to)
		if !ok {
			return ErrInvalidTo
		}
		toDay = dates.Key(d)
	}
	if fromDay != "" && toDay != "" && fromDay > toDay {
		return ErrRangeOrder
	}
	return nil
}

// FilterEvents keeps events whose person's full name contains name
// (case-insensitive) and whose day lies within [from, to]. Blank arguments
// do not filter. Events without a timestamp are dropped once a bound is set.
func FilterEvents(events []Event, name, from, to string) []Event {
	name = strings.ToLower(strings.TrimSpace(name))
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if name == "" && from == "" && to == "" {
		return events
	}

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if name != "" {
			if ev.Person == nil || !strings.Contains(strings.ToLower(ev.Person.FullName()), name) {
				continue
			}
		}
		if from != "" || to != "" {
			if strings.TrimSpace(ev.Timestamp) == "" {
				continue
			}
			day := dates.KeyOf(ev.Timestamp)
			if from != "" && day < from {
				continue
			}
			if to != "" && day > to {
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// FilterEnrollments keeps enrollments whose person's full name contains name.
func FilterEnrollments(enrollments []Enrollment, name string) []Enrollment {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return enrollments
	}
	out := make([]Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Person != nil && strings.Contains(strings.ToLower(e.Person.FullName()), name) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByName narrows enrollments to matching people and keeps the events
// of those people plus events whose own person data matches.
func FilterByName(events []Event, enrollments []Enrollment, name string) ([]Event, []Enrollment) {
	if strings.TrimSpace(name) == "" {
		return events, enrollments
	}
	kept := FilterEnrollments(enrollments, name)
	ids := make(map[int]bool, len(kept))
	for _, e := range kept {
		ids[e.Person.ID] = true
	}
	enrolled := make(map[int]bool, len(enrollments))
	for _, e := range enrollments {
		if e.Person != nil {
			enrolled[e.Person.ID] = true
		}
	}

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Person == nil {
			continue
		}
		if ids[ev.Person.ID] {
			out = append(out, ev)
		}
	}
	for _, ev := range FilterEvents(events, name, "", "") {
		if !enrolled[ev.Person.ID] {
			out = append(out, ev)
		}
	}
	return out, kept
}

// Summary aggregates a set of rows.
type Summary struct {
	People          int     `json:"people"`
	Presences       int     `json:"presences"`
	Lateness        int     `json:"lateness"`
	Absences        int     `json:"absences"`
	Discount        float64 `json:"discount"`
	AverageDiscount float64 `json:"average_discount"`
}

// Totals sums the rows and averages the discount per person.
func Totals(rows []Row) Summary {
	var s Summary
	for _, r := range rows {
		s.People++
		s.Presences += r.Presences
		s.Lateness += r.Lateness
		s.Absences += r.Absences
		s.Discount += r.Discount
	}
	if s.People > 0 {
		s.AverageDiscount = s.Discount / float64(s.People)
	}
	return s
}

// ForPerson returns the rows belonging to one person.
func ForPerson(rows []Row, personID int) []Row {
	out := make([]Row, 0, 1)
	for _, r := range rows {
		if r.PersonID == personID {
			out = append(out, r)
		}
	}
	return out
}
