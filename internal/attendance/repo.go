package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"attendancereport/internal/store"
	"attendancereport/internal/summary"
)

// StoredEvent is an attendance_events row.
type StoredEvent struct {
	ID         int64  `json:"id"`
	PersonID   int    `json:"person_id"`
	MovementID int    `json:"movement_id"`
	Timestamp  string `json:"timestamp"`
	IPAddress  string `json:"ip_address,omitempty"`
}

// Repository reads and writes attendance data through database/sql. Queries
// are written with '?' placeholders and rebound for Postgres.
type Repository struct {
	db       *sql.DB
	postgres bool
}

// NewRepository creates a repo for a connection opened with driver.
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, postgres: driver == store.DriverPostgres}
}

// ListEvents returns every clock event with its person and movement.
func (r *Repository) ListEvents(ctx context.Context) ([]summary.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.given_name, p.paternal_surname, p.maternal_surname, p.document,
		       m.description, m.abbreviation, e.occurred_at
		FROM attendance_events e
		JOIN people p ON p.id = e.person_id
		LEFT JOIN movements m ON m.id = e.movement_id
		ORDER BY e.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []summary.Event
	for rows.Next() {
		var (
			p          summary.Person
			names      [3]sql.NullString
			document   sql.NullString
			desc, abbr sql.NullString
			occurred   sql.NullString
		)
		if err := rows.Scan(&p.ID, &names[0], &names[1], &names[2], &document, &desc, &abbr, &occurred); err != nil {
			return nil, err
		}
		p.GivenName, p.PaternalSurname, p.MaternalSurname = names[0].String, names[1].String, names[2].String
		p.Document = nullable(document)
		res = append(res, summary.Event{
			Person:    &p,
			Movement:  summary.Movement{Description: desc.String, Abbreviation: abbr.String},
			Timestamp: occurred.String,
		})
	}
	return res, rows.Err()
}

// ListEnrollments returns every user account with its person.
func (r *Repository) ListEnrollments(ctx context.Context) ([]summary.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.created_at, p.id, p.given_name, p.paternal_surname, p.maternal_surname, p.document
		FROM users u
		JOIN people p ON p.id = u.person_id
		ORDER BY u.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []summary.Enrollment
	for rows.Next() {
		var (
			e        summary.Enrollment
			p        summary.Person
			created  sql.NullString
			names    [3]sql.NullString
			document sql.NullString
		)
		if err := rows.Scan(&e.UserID, &created, &p.ID, &names[0], &names[1], &names[2], &document); err != nil {
			return nil, err
		}
		p.GivenName, p.PaternalSurname, p.MaternalSurname = names[0].String, names[1].String, names[2].String
		p.Document = nullable(document)
		e.CreatedAt = created.String
		e.Person = &p
		res = append(res, e)
	}
	return res, rows.Err()
}

// FindMovement returns an active movement by id.
func (r *Repository) FindMovement(ctx context.Context, id int) (summary.Movement, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT description, abbreviation FROM movements WHERE id = ? AND status = 'ACTIVO'
	`), id)
	var (
		m    summary.Movement
		abbr sql.NullString
	)
	if err := row.Scan(&m.Description, &abbr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return summary.Movement{}, ErrUnknownMovement
		}
		return summary.Movement{}, err
	}
	m.Abbreviation = abbr.String
	return m, nil
}

// RecentEvent returns the latest event for the person and movement at or
// after since, or nil when there is none.
func (r *Repository) RecentEvent(ctx context.Context, personID, movementID int, since string) (*StoredEvent, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT id, person_id, movement_id, occurred_at, COALESCE(ip_address, '')
		FROM attendance_events
		WHERE person_id = ? AND movement_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC
		LIMIT 1
	`), personID, movementID, since)
	var evt StoredEvent
	if err := row.Scan(&evt.ID, &evt.PersonID, &evt.MovementID, &evt.Timestamp, &evt.IPAddress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// InsertEvent writes a new event and returns it with its id.
func (r *Repository) InsertEvent(ctx context.Context, evt StoredEvent) (StoredEvent, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
		INSERT INTO attendance_events (person_id, movement_id, occurred_at, ip_address)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), evt.PersonID, evt.MovementID, evt.Timestamp, evt.IPAddress)
	if err := row.Scan(&evt.ID); err != nil {
		return StoredEvent{}, err
	}
	return evt, nil
}

// rebind turns '?' placeholders into $n for Postgres.
func (r *Repository) rebind(query string) string {
	if !r.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
