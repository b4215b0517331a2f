package summary

import (
	"strings"
	"time"

	"attendancereport/internal/clock"
	"attendancereport/internal/dates"
)

// Aggregator computes per-person attendance summaries. It holds no state
// between calls and is safe for concurrent use.
type Aggregator struct {
	policy Policy
	clock  clock.Clock
}

// New creates an aggregator. A nil clock reads the system time.
func New(policy Policy, c clock.Clock) *Aggregator {
	if c == nil {
		c = clock.System{}
	}
	return &Aggregator{policy: policy, clock: c}
}

// Policy returns the rules in effect.
func (a *Aggregator) Policy() Policy { return a.policy }

type member struct {
	person    Person
	createdAt string
	enrolled  bool
}

// Summarize returns one row per distinct person across enrollments and
// events, enrollments first in their given order, then event-only persons in
// first-seen order. Unparseable dates degrade to "none" and never abort.
func (a *Aggregator) Summarize(events []Event, enrollments []Enrollment, periodStart, periodEnd string) []Row {
	start, end := a.period(periodStart, periodEnd)

	order := make([]int, 0, len(enrollments))
	members := make(map[int]*member)
	for _, e := range enrollments {
		if e.Person == nil {
			continue
		}
		// a repeated enrollment refreshes the person data; the first one
		// keeps its creation date and registry position
		if m, ok := members[e.Person.ID]; ok {
			m.person = *e.Person
			continue
		}
		members[e.Person.ID] = &member{person: *e.Person, createdAt: e.CreatedAt, enrolled: true}
		order = append(order, e.Person.ID)
	}

	byPerson := make(map[int][]Event)
	for _, ev := range events {
		if ev.Person == nil {
			continue
		}
		id := ev.Person.ID
		if _, ok := members[id]; !ok {
			members[id] = &member{person: *ev.Person}
			order = append(order, id)
		}
		byPerson[id] = append(byPerson[id], ev)
	}

	rows := make([]Row, 0, len(order))
	for _, id := range order {
		rows = append(rows, a.summarize(members[id], byPerson[id], start, end))
	}
	return rows
}

// period parses the global bounds and clamps the end to today.
func (a *Aggregator) period(periodStart, periodEnd string) (time.Time, time.Time) {
	start, _ := dates.Parse(periodStart)
	end, ok := dates.Parse(periodEnd)
	today := clock.Today(a.clock)
	if !ok || dates.Day(end).After(today) {
		end = today
	}
	return start, end
}

func (a *Aggregator) summarize(m *member, events []Event, periodStart, periodEnd time.Time) Row {
	byDay := make(map[string][]Event)
	var last string
	for _, ev := range events {
		if strings.TrimSpace(ev.Timestamp) == "" {
			continue
		}
		key := dates.KeyOf(ev.Timestamp)
		byDay[key] = append(byDay[key], ev)
		if ev.Timestamp > last {
			last = ev.Timestamp
		}
	}

	start := a.effectiveStart(m, periodStart)
	end := effectiveEnd(byDay, periodEnd)

	working := dates.WorkingDates(start, end)
	late, present := 0, 0
	for _, d := range working {
		marks, ok := byDay[dates.Key(d)]
		if !ok {
			continue
		}
		present++
		if a.isLate(representative(marks)) {
			late++
		}
	}
	absent := len(working) - present

	row := Row{
		PersonID:    m.person.ID,
		Name:        m.person.FullName(),
		Document:    m.person.Document,
		Presences:   present,
		Lateness:    late,
		Absences:    absent,
		Discount:    float64(absent)*a.policy.AbsencePenalty + float64(late)*a.policy.LatePenalty,
		WorkingDays: len(working),
		RangeStart:  dayPtr(start),
		RangeEnd:    dayPtr(end),
	}
	if row.Name == "" {
		row.Name = a.policy.NoNameLabel
	}
	if last != "" {
		row.LastMark = &last
	}
	return row
}

// effectiveStart is the later of the period start and the day after the
// person's enrollment.
func (a *Aggregator) effectiveStart(m *member, periodStart time.Time) time.Time {
	start := periodStart
	if m.enrolled {
		if created, ok := dates.Parse(m.createdAt); ok {
			next := created.AddDate(0, 0, 1)
			if start.IsZero() || next.After(start) {
				start = next
			}
		}
	}
	if start.IsZero() {
		start, _ = dates.Parse(a.policy.DefaultStart)
	}
	return start
}

// effectiveEnd pulls the end back to the person's latest marked day so a
// trailing stretch with no data is not counted as absences.
func effectiveEnd(byDay map[string][]Event, periodEnd time.Time) time.Time {
	var latest string
	for key := range byDay {
		if key > latest {
			latest = key
		}
	}
	if latest == "" {
		return periodEnd
	}
	day, ok := dates.ParseDay(latest)
	if ok && day.Before(dates.Day(periodEnd)) {
		return day
	}
	return periodEnd
}

// representative picks the earliest entry of the day, or the earliest mark
// of any kind when the day has no entry.
func representative(marks []Event) Event {
	var chosen Event
	found := false
	for _, ev := range marks {
		if Classify(ev.Movement) != Entry {
			continue
		}
		if !found || ev.Timestamp < chosen.Timestamp {
			chosen, found = ev, true
		}
	}
	if found {
		return chosen
	}
	chosen = marks[0]
	for _, ev := range marks[1:] {
		if ev.Timestamp < chosen.Timestamp {
			chosen = ev
		}
	}
	return chosen
}

func (a *Aggregator) isLate(ev Event) bool {
	t, ok := dates.Parse(ev.Timestamp)
	if !ok {
		return false
	}
	return t.Hour()*60+t.Minute() > a.policy.LateAfterMinutes
}

// dayPtr is nil for an unresolved bound.
func dayPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := dates.Day(t)
	return &d
}
