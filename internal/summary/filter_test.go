package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		movement Movement
		want     MovementKind
	}{
		{Movement{Description: "Entrada"}, Entry},
		{Movement{Description: "ENTRADA TARDE"}, Entry},
		{Movement{Abbreviation: "ent"}, Entry},
		{Movement{Description: "Salida", Abbreviation: "SAL"}, Exit},
		{Movement{Abbreviation: " sal "}, Exit},
		{Movement{Description: "Refrigerio", Abbreviation: "REF"}, Unknown},
		{Movement{}, Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.movement), "%+v", tt.movement)
	}
	assert.Equal(t, "entry", Entry.String())
	assert.Equal(t, "unknown", MovementKind(42).String())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ana Ruiz Paz", Person{GivenName: "Ana", PaternalSurname: "Ruiz", MaternalSurname: "Paz"}.FullName())
	assert.Equal(t, "Ana Paz", Person{GivenName: " Ana ", MaternalSurname: "Paz"}.FullName())
	assert.Equal(t, "", Person{PaternalSurname: "  "}.FullName())
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		from, to string
		want     error
	}{
		{"", "", nil},
		{"2025-10-01", "", nil},
		{"", "2025-10-01", nil},
		{"2025-10-01", "2025-10-01", nil},
		{"2025-10-01", "2025-11-30", nil},
		{"01/10/2025", "", ErrInvalidFrom},
		{"", "2025-11-31", ErrInvalidTo},
		{"2025-11-30", "2025-10-01", ErrRangeOrder},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, ValidateRange(tt.from, tt.to), tt.want, "%q..%q", tt.from, tt.to)
	}
}

func TestFilterEvents(t *testing.T) {
	ana := &Person{ID: 1, GivenName: "Ana", PaternalSurname: "Ruiz"}
	luis := &Person{ID: 2, GivenName: "Luis"}
	events := []Event{
		{Person: ana, Timestamp: "2025-10-31 08:00:00"},
		{Person: ana, Timestamp: "2025-11-03 08:00:00"},
		{Person: luis, Timestamp: "2025-11-03 08:10:00"},
		{Person: luis, Timestamp: ""},
		{Person: nil, Timestamp: "2025-11-03 09:00:00"},
	}

	assert.Len(t, FilterEvents(events, "", "", ""), 5)
	assert.Len(t, FilterEvents(events, "ruiz", "", ""), 2)
	assert.Len(t, FilterEvents(events, "", "2025-11-01", ""), 3)
	assert.Len(t, FilterEvents(events, "", "", "2025-10-31"), 1)

	got := FilterEvents(events, "LUIS", "2025-11-03", "2025-11-03")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "2025-11-03 08:10:00", got[0].Timestamp)
	}
}

func TestFilterEnrollments(t *testing.T) {
	enrollments := []Enrollment{
		{Person: &Person{ID: 1, GivenName: "Ana"}},
		{Person: &Person{ID: 2, GivenName: "Luis"}},
		{Person: nil},
	}
	assert.Len(t, FilterEnrollments(enrollments, ""), 3)
	assert.Len(t, FilterEnrollments(enrollments, "an"), 1)
}

func TestTotals(t *testing.T) {
	rows := []Row{
		{PersonID: 1, Presences: 3, Lateness: 1, Absences: 27, Discount: 137},
		{PersonID: 2, Presences: 2, Lateness: 1, Absences: 28, Discount: 142},
		{PersonID: 3},
	}
	got := Totals(rows)
	assert.Equal(t, 3, got.People)
	assert.Equal(t, 5, got.Presences)
	assert.Equal(t, 2, got.Lateness)
	assert.Equal(t, 55, got.Absences)
	assert.Equal(t, 279.0, got.Discount)
	assert.InDelta(t, 93.0, got.AverageDiscount, 1e-9)

	assert.Equal(t, Summary{}, Totals(nil))
	assert.Len(t, ForPerson(rows, 2), 1)
	assert.Empty(t, ForPerson(rows, 9))
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("08:15")
	assert.NoError(t, err)
	assert.Equal(t, 495, m)

	_, err = ParseClock("8.15")
	assert.Error(t, err)
}

func TestFilterByName(t *testing.T) {
	enrollments := []Enrollment{
		{Person: &Person{ID: 1, GivenName: "Ana", PaternalSurname: "Ruiz"}},
		{Person: &Person{ID: 2, GivenName: "Luis"}},
	}
	events := []Event{
		{Person: &Person{ID: 1}, Timestamp: "2025-11-03 08:00:00"},
		{Person: &Person{ID: 2}, Timestamp: "2025-11-03 08:00:00"},
		{Person: &Person{ID: 7, GivenName: "Ana", PaternalSurname: "Vega"}, Timestamp: "2025-11-03 08:00:00"},
		{Person: &Person{ID: 1, GivenName: "Ana"}, Timestamp: "2025-11-04 08:00:00"},
	}

	gotEvents, gotEnrollments := FilterByName(events, enrollments, "ana")
	require.Len(t, gotEnrollments, 1)
	assert.Equal(t, 1, gotEnrollments[0].Person.ID)

	ids := make([]int, 0, len(gotEvents))
	for _, ev := range gotEvents {
		ids = append(ids, ev.Person.ID)
	}
	assert.Equal(t, []int{1, 1, 7}, ids, "id-only stubs of matched people are kept")

	allEvents, allEnrollments := FilterByName(events, enrollments, " ")
	assert.Len(t, allEvents, 4)
	assert.Len(t, allEnrollments, 2)
}
