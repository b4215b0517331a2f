package summary

import (
	"strings"
	"time"
)

// Person is an enrolled member of staff.
type Person struct {
	ID              int     `json:"id"`
	GivenName       string  `json:"given_name"`
	PaternalSurname string  `json:"paternal_surname,omitempty"`
	MaternalSurname string  `json:"maternal_surname,omitempty"`
	Document        *string `json:"document,omitempty"`
}

// FullName joins the non-blank name parts with a single space.
func (p Person) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.GivenName, p.PaternalSurname, p.MaternalSurname} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Enrollment links a person to the date their account was created.
type Enrollment struct {
	UserID    int     `json:"user_id"`
	Person    *Person `json:"person"`
	CreatedAt string  `json:"created_at"`
}

// Movement describes the kind of clock event.
type Movement struct {
	Description  string `json:"description"`
	Abbreviation string `json:"abbreviation"`
}

// Event is a single clock mark. Timestamp keeps the stored
// "YYYY-MM-DD HH:MM:SS" form so it sorts chronologically as a string.
type Event struct {
	Person    *Person  `json:"person"`
	Movement  Movement `json:"movement"`
	Timestamp string   `json:"timestamp"`
}

// Row is the per-person attendance summary.
type Row struct {
	PersonID  int     `json:"person_id"`
	Name      string  `json:"name"`
	Document  *string `json:"document"`
	Presences int     `json:"presences"`
	Lateness  int     `json:"lateness"`
	Absences  int     `json:"absences"`
	Discount  float64 `json:"discount"`
	LastMark  *string `json:"last_mark"`

	WorkingDays int        `json:"working_days"`
	RangeStart  *time.Time `json:"range_start,omitempty"`
	RangeEnd    *time.Time `json:"range_end,omitempty"`
}
