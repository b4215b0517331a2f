// Package sample holds a small reference data set: three enrolled people, two
// of whom have clock marks in November 2025.
package sample

import "attendancereport/internal/summary"

// PeriodStart is the first day the reference data covers.
const PeriodStart = "2025-10-01"

func doc(s string) *string { return &s }

var (
	entry = summary.Movement{Description: "Entrada", Abbreviation: "ENT"}
	exit  = summary.Movement{Description: "Salida", Abbreviation: "SAL"}
)

// Enrollments returns the enrolled users.
func Enrollments() []summary.Enrollment {
	return []summary.Enrollment{
		{UserID: 1, CreatedAt: "2025-10-01", Person: &summary.Person{ID: 1, GivenName: "Admin", PaternalSurname: "Uno", Document: doc("A001")}},
		{UserID: 2, CreatedAt: "2025-09-01", Person: &summary.Person{ID: 2, GivenName: "Empleado", PaternalSurname: "Dos", Document: doc("E002")}},
		{UserID: 3, CreatedAt: "2025-12-03", Person: &summary.Person{ID: 3, GivenName: "Nuevo", PaternalSurname: "Tres", Document: doc("N003")}},
	}
}

// Events returns the clock marks. Event persons carry only the id, as they
// would when loaded from a bare foreign key.
func Events() []summary.Event {
	p1 := &summary.Person{ID: 1}
	p2 := &summary.Person{ID: 2}
	return []summary.Event{
		{Person: p1, Movement: entry, Timestamp: "2025-11-10 08:05:00"},
		{Person: p1, Movement: exit, Timestamp: "2025-11-10 17:00:00"},
		{Person: p1, Movement: entry, Timestamp: "2025-11-11 08:20:00"},
		{Person: p1, Movement: entry, Timestamp: "2025-11-12 08:10:00"},

		{Person: p2, Movement: entry, Timestamp: "2025-11-10 08:50:00"},
		{Person: p2, Movement: exit, Timestamp: "2025-11-10 17:05:00"},
		{Person: p2, Movement: entry, Timestamp: "2025-11-11 07:55:00"},
		{Person: p2, Movement: exit, Timestamp: "2025-11-11 16:50:00"},
	}
}
