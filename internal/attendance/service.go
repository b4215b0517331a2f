package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"attendancereport/internal/clock"
	"attendancereport/internal/dates"
	"attendancereport/internal/metrics"
	"attendancereport/internal/summary"
)

var (
	ErrPersonRequired  = errors.New("person id required")
	ErrUnknownMovement = errors.New("movement not found")
)

// Store is the persistence the service needs.
type Store interface {
	ListEvents(ctx context.Context) ([]summary.Event, error)
	ListEnrollments(ctx context.Context) ([]summary.Enrollment, error)
	FindMovement(ctx context.Context, id int) (summary.Movement, error)
	RecentEvent(ctx context.Context, personID, movementID int, since string) (*StoredEvent, error)
	InsertEvent(ctx context.Context, evt StoredEvent) (StoredEvent, error)
}

// Cache stores computed summaries.
type Cache interface {
	Get(ctx context.Context, key string) ([]summary.Row, bool, error)
	Set(ctx context.Context, key string, rows []summary.Row) error
	Purge(ctx context.Context) error
}

// Query selects the period and, optionally, people by name.
type Query struct {
	From string `json:"from"`
	To   string `json:"to"`
	Name string `json:"name"`
}

func (q Query) cacheKey(today time.Time) string {
	return strings.Join([]string{dates.Key(today), q.From, q.To, strings.ToLower(strings.TrimSpace(q.Name))}, "|")
}

// Service coordinates summaries, clock marks and exports.
type Service struct {
	store       Store
	agg         *summary.Aggregator
	clock       clock.Clock
	dedupWindow time.Duration
	cache       Cache
	metrics     *metrics.Metrics
}

// NewService creates a service backed by a store.
func NewService(store Store, agg *summary.Aggregator, clk clock.Clock, dedupWindow time.Duration) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	return &Service{store: store, agg: agg, clock: clk, dedupWindow: dedupWindow}
}

// WithCache enables summary caching.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// WithMetrics enables metrics collection.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Summary computes the attendance summary for q. A blank From means the
// policy's default start. Cache failures are logged and fall through to a
// fresh computation.
func (s *Service) Summary(ctx context.Context, q Query) ([]summary.Row, error) {
	if err := summary.ValidateRange(q.From, q.To); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.From) == "" {
		q.From = s.agg.Policy().DefaultStart
	}

	key := q.cacheKey(clock.Today(s.clock))
	if s.cache != nil {
		rows, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Printf("summary cache get failed: %v", err)
		} else if ok {
			s.metrics.ObserveSummary("cache", len(rows), 0)
			return rows, nil
		}
	}

	started := time.Now()
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		s.metrics.ObserveSummary("error", 0, 0)
		return nil, fmt.Errorf("list events: %w", err)
	}
	enrollments, err := s.store.ListEnrollments(ctx)
	if err != nil {
		s.metrics.ObserveSummary("error", 0, 0)
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	events, enrollments = summary.FilterByName(events, enrollments, q.Name)
	rows := s.agg.Summarize(events, enrollments, q.From, q.To)
	s.metrics.ObserveSummary("computed", len(rows), time.Since(started))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rows); err != nil {
			log.Printf("summary cache set failed: %v", err)
		}
	}
	return rows, nil
}

// Mark records a clock event stamped with the current time. A repeat of the
// same person and movement inside the dedup window returns the existing
// event and created=false.
func (s *Service) Mark(ctx context.Context, personID, movementID int, ip string) (StoredEvent, bool, error) {
	if personID <= 0 {
		return StoredEvent{}, false, ErrPersonRequired
	}
	if _, err := s.store.FindMovement(ctx, movementID); err != nil {
		s.metrics.ObserveMark("rejected")
		return StoredEvent{}, false, err
	}

	now := s.clock.Now().In(time.Local)
	since := now.Add(-s.dedupWindow).Format(dates.TimestampLayout)
	recent, err := s.store.RecentEvent(ctx, personID, movementID, since)
	if err != nil {
		return StoredEvent{}, false, fmt.Errorf("recent event: %w", err)
	}
	if recent != nil {
		s.metrics.ObserveMark("duplicate")
		return *recent, false, nil
	}

	evt, err := s.store.InsertEvent(ctx, StoredEvent{
		PersonID:   personID,
		MovementID: movementID,
		Timestamp:  now.Format(dates.TimestampLayout),
		IPAddress:  ip,
	})
	if err != nil {
		return StoredEvent{}, false, fmt.Errorf("insert event: %w", err)
	}
	s.metrics.ObserveMark("created")

	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			log.Printf("summary cache purge failed: %v", err)
		}
	}
	return evt, true, nil
}
