package attendance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendancereport/internal/clock"
	"attendancereport/internal/exporter"
	"attendancereport/internal/metrics"
	"attendancereport/internal/queue"
	"attendancereport/internal/sample"
	"attendancereport/internal/summary"
)

type fakeStore struct {
	events      []summary.Event
	enrollments []summary.Enrollment
	movements   map[int]summary.Movement
	inserted    []StoredEvent
	listCalls   int
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      sample.Events(),
		enrollments: sample.Enrollments(),
		movements: map[int]summary.Movement{
			1: {Description: "Entrada", Abbreviation: "ENT"},
			2: {Description: "Salida", Abbreviation: "SAL"},
		},
	}
}

func (f *fakeStore) ListEvents(ctx context.Context) ([]summary.Event, error) {
	f.listCalls++
	return f.events, f.listErr
}

func (f *fakeStore) ListEnrollments(ctx context.Context) ([]summary.Enrollment, error) {
	return f.enrollments, nil
}

func (f *fakeStore) FindMovement(ctx context.Context, id int) (summary.Movement, error) {
	m, ok := f.movements[id]
	if !ok {
		return summary.Movement{}, ErrUnknownMovement
	}
	return m, nil
}

func (f *fakeStore) RecentEvent(ctx context.Context, personID, movementID int, since string) (*StoredEvent, error) {
	var found *StoredEvent
	for i := range f.inserted {
		e := f.inserted[i]
		if e.PersonID == personID && e.MovementID == movementID && e.Timestamp >= since {
			found = &e
		}
	}
	return found, nil
}

func (f *fakeStore) InsertEvent(ctx context.Context, evt StoredEvent) (StoredEvent, error) {
	evt.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, evt)
	return evt, nil
}

type fakeCache struct {
	entries map[string][]summary.Row
	purged  int
	getErr  error
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]summary.Row, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	rows, ok := c.entries[key]
	return rows, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, rows []summary.Row) error {
	c.entries[key] = rows
	return nil
}

func (c *fakeCache) Purge(ctx context.Context) error {
	c.purged++
	c.entries = map[string][]summary.Row{}
	return nil
}

type movingClock struct{ now time.Time }

func (c *movingClock) Now() time.Time { return c.now }

func newService(st Store, clk clock.Clock) *Service {
	agg := summary.New(summary.DefaultPolicy(), clk)
	return NewService(st, agg, clk, 5*time.Minute).WithMetrics(metrics.New(prometheus.NewRegistry()))
}

func TestServiceSummary(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local))
	svc := newService(newFakeStore(), clk)

	rows, err := svc.Summary(context.Background(), Query{From: sample.PeriodStart})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].Presences)
	assert.Equal(t, 2, rows[1].Presences)
}

func TestServiceSummaryByName(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local))
	svc := newService(newFakeStore(), clk)

	rows, err := svc.Summary(context.Background(), Query{From: sample.PeriodStart, Name: "empleado"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Empleado Dos", rows[0].Name)
	assert.Equal(t, 2, rows[0].Presences)
}

func TestServiceSummaryRejectsBadRange(t *testing.T) {
	svc := newService(newFakeStore(), clock.System{})

	_, err := svc.Summary(context.Background(), Query{From: "2025-12-01", To: "2025-11-01"})
	assert.ErrorIs(t, err, summary.ErrRangeOrder)
	_, err = svc.Summary(context.Background(), Query{From: "yesterday"})
	assert.ErrorIs(t, err, summary.ErrInvalidFrom)
}

func TestServiceSummaryBlankFromUsesDefaultStart(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local))
	svc := newService(newFakeStore(), clk)

	blank, err := svc.Summary(context.Background(), Query{Name: "empleado"})
	require.NoError(t, err)
	explicit, err := svc.Summary(context.Background(), Query{From: sample.PeriodStart, Name: "empleado"})
	require.NoError(t, err)

	require.Len(t, blank, 1)
	assert.Equal(t, explicit, blank)
	assert.Equal(t, 28, blank[0].Absences, "enrolled 2025-09-01, counted from 2025-10-01")
	assert.Equal(t, 142.0, blank[0].Discount)
}

func TestServiceSummaryStoreError(t *testing.T) {
	st := newFakeStore()
	st.listErr = errors.New("connection refused")
	svc := newService(st, clock.System{})

	_, err := svc.Summary(context.Background(), Query{})
	assert.ErrorContains(t, err, "connection refused")
}

func TestServiceSummaryCache(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local))
	st := newFakeStore()
	cache := &fakeCache{entries: map[string][]summary.Row{}}
	svc := newService(st, clk).WithCache(cache)

	first, err := svc.Summary(context.Background(), Query{From: sample.PeriodStart})
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), Query{From: sample.PeriodStart})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, st.listCalls, "second call served from cache")

	cache.getErr = errors.New("redis down")
	_, err = svc.Summary(context.Background(), Query{From: sample.PeriodStart})
	require.NoError(t, err)
	assert.Equal(t, 2, st.listCalls, "cache errors fall through")
}

func TestServiceMark(t *testing.T) {
	clk := &movingClock{now: time.Date(2025, 11, 17, 8, 3, 0, 0, time.Local)}
	st := newFakeStore()
	cache := &fakeCache{entries: map[string][]summary.Row{}}
	svc := newService(st, clk).WithCache(cache)
	ctx := context.Background()

	evt, created, err := svc.Mark(ctx, 2, 1, "10.0.0.7")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2025-11-17 08:03:00", evt.Timestamp)
	assert.Equal(t, "10.0.0.7", evt.IPAddress)
	assert.Equal(t, 1, cache.purged)

	clk.now = clk.now.Add(2 * time.Minute)
	again, created, err := svc.Mark(ctx, 2, 1, "10.0.0.7")
	require.NoError(t, err)
	assert.False(t, created, "inside dedup window")
	assert.Equal(t, evt.ID, again.ID)

	clk.now = clk.now.Add(10 * time.Minute)
	_, created, err = svc.Mark(ctx, 2, 1, "10.0.0.7")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, st.inserted, 2)
}

func TestServiceMarkValidation(t *testing.T) {
	svc := newService(newFakeStore(), clock.System{})

	_, _, err := svc.Mark(context.Background(), 0, 1, "")
	assert.ErrorIs(t, err, ErrPersonRequired)
	_, _, err = svc.Mark(context.Background(), 1, 99, "")
	assert.ErrorIs(t, err, ErrUnknownMovement)
}

func TestExportJobRoundTrip(t *testing.T) {
	at := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)
	job := NewExportJob(Query{From: "2025-10-01", Name: "ana"}, exporter.FormatXLSX, at)
	require.NotEmpty(t, job.ID)

	msg, err := job.Message()
	require.NoError(t, err)
	assert.Equal(t, MessageExport, msg.Type)

	got, err := DecodeExportJob(msg)
	require.NoError(t, err)
	assert.Equal(t, job, got)
	assert.True(t, strings.HasSuffix(got.FileName(), ".xlsx"))

	_, err = DecodeExportJob(queue.Message{Type: "checkin"})
	assert.Error(t, err)
	_, err = DecodeExportJob(queue.Message{Type: MessageExport, Body: []byte(`{}`)})
	assert.Error(t, err)
}

func TestServiceExport(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local))
	svc := newService(newFakeStore(), clk)
	dir := t.TempDir()

	job := NewExportJob(Query{From: sample.PeriodStart}, exporter.FormatCSV, clk.Now())
	path, err := svc.Export(context.Background(), job, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, job.FileName()), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name,Document,Presences,Lateness,Absences,Discount,LastMark", lines[0])
	assert.Equal(t, "Admin Uno,A001,3,1,27,137.0,2025-11-12 08:10:00", lines[1])
	assert.Equal(t, "Empleado Dos,E002,2,1,28,142.0,2025-11-11 16:50:00", lines[2])
	assert.Equal(t, "Nuevo Tres,N003,0,0,0,0.0,", lines[3])
}

func TestRunExports(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 11, 14, 9, 0, 0, 0, time.Local))
	svc := newService(newFakeStore(), clk)
	dir := t.TempDir()
	q := queue.NewInMemory(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := NewExportJob(Query{From: sample.PeriodStart}, exporter.FormatXLSX, clk.Now())
	msg, err := job.Message()
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "checkin", Body: []byte("1")}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: MessageExport, Body: []byte("not json")}))
	require.NoError(t, q.Publish(ctx, msg))

	done := make(chan error, 1)
	go func() { done <- svc.RunExports(ctx, q, dir) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, job.FileName()))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("RunExports did not stop")
	}
}
