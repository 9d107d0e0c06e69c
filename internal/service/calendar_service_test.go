package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker/internal/models"
	"github.com/noah-isme/attendance-tracker/internal/repository"
	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
	"github.com/noah-isme/attendance-tracker/pkg/jobs"
	"github.com/noah-isme/attendance-tracker/pkg/storage"
)

type calendarRepoStub struct {
	mu      sync.Mutex
	loadRes models.EventsByDate
	loadErr error
	saveErr error
	clrErr  error
	saves   int
}

func (s *calendarRepoStub) Load(ctx context.Context) (models.EventsByDate, error) {
	return s.loadRes, s.loadErr
}

func (s *calendarRepoStub) Save(ctx context.Context, events models.EventsByDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return nil
}

func (s *calendarRepoStub) Clear(ctx context.Context) error {
	return s.clrErr
}

func (s *calendarRepoStub) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type dispatcherStub struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return d.err
}

func (d *dispatcherStub) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

var calendarNow = time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC)

func newTestCalendarService(repo calendarRepository) (*CalendarService, *changeRecorder) {
	rec := &changeRecorder{}
	svc := NewCalendarService(repo, 0, rec, nil, nil, nil)
	ids := 0
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("ev-%d", ids)
	}
	svc.now = func() time.Time { return calendarNow }
	return svc, rec
}

func TestCalendarServiceAddEventDefaults(t *testing.T) {
	repo := &calendarRepoStub{}
	svc, rec := newTestCalendarService(repo)
	ctx := context.Background()

	first, err := svc.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: " Exam "})
	require.NoError(t, err)
	assert.Equal(t, models.CalendarEvent{ID: "ev-1", Title: "Exam", Date: "2024-10-20", Color: models.DefaultEventColor, Type: models.EventTypeCustom}, *first)

	_, err = svc.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: "Lab", Time: "14:30", Color: "#00ff00", Type: models.EventTypeAttendance})
	require.NoError(t, err)

	events, err := svc.EventsOn("2024-10-20")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"ev-1", "ev-2"}, []string{events[0].ID, events[1].ID})
	assert.Equal(t, "14:30", events[1].Time)
	assert.Equal(t, 2, repo.saveCount())
	assert.Equal(t, models.TopicCalendarEvents, rec.changes[0].Topic)

	empty, err := svc.EventsOn("2024-10-21")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCalendarServiceAddEventValidation(t *testing.T) {
	repo := &calendarRepoStub{}
	svc, _ := newTestCalendarService(repo)
	ctx := context.Background()

	cases := []struct {
		name string
		date string
		req  CreateEventRequest
	}{
		{"missing title", "2024-10-20", CreateEventRequest{Title: "  "}},
		{"bad date", "20-10-2024", CreateEventRequest{Title: "Exam"}},
		{"bad time", "2024-10-20", CreateEventRequest{Title: "Exam", Time: "2pm"}},
		{"bad type", "2024-10-20", CreateEventRequest{Title: "Exam", Type: "holiday"}},
		{"bad color", "2024-10-20", CreateEventRequest{Title: "Exam", Color: "red"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddEvent(ctx, tc.date, tc.req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Zero(t, repo.saveCount())

	_, err := svc.EventsOn("tomorrow")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCalendarServiceToggleCompletion(t *testing.T) {
	repo := &calendarRepoStub{}
	svc, rec := newTestCalendarService(repo)
	ctx := context.Background()
	_, err := svc.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: "Exam"})
	require.NoError(t, err)

	done, err := svc.ToggleCompletion(ctx, "2024-10-20", "ev-1")
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedDate)
	assert.True(t, calendarNow.Equal(*done.CompletedDate))
	assert.Equal(t, models.ActionToggled, rec.changes[len(rec.changes)-1].Action)

	reopened, err := svc.ToggleCompletion(ctx, "2024-10-20", "ev-1")
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedDate)

	missing, err := svc.ToggleCompletion(ctx, "2024-10-20", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
	missing, err = svc.ToggleCompletion(ctx, "2024-10-21", "ev-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, 3, repo.saveCount())
}

func TestCalendarServiceWriteFailureKeepsMemory(t *testing.T) {
	repo := &calendarRepoStub{}
	svc, _ := newTestCalendarService(repo)
	ctx := context.Background()
	_, err := svc.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: "Exam"})
	require.NoError(t, err)

	repo.saveErr = errors.New("read-only filesystem")
	_, err = svc.ToggleCompletion(ctx, "2024-10-20", "ev-1")
	assert.ErrorIs(t, err, appErrors.ErrStorageWrite)
	_, err = svc.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: "Lab"})
	assert.ErrorIs(t, err, appErrors.ErrStorageWrite)

	all := svc.All()
	require.Len(t, all["2024-10-20"], 1)
	assert.False(t, all["2024-10-20"][0].Completed)
}

func TestCalendarServiceAllReturnsCopies(t *testing.T) {
	svc, _ := newTestCalendarService(&calendarRepoStub{})
	_, err := svc.AddEvent(context.Background(), "2024-10-20", CreateEventRequest{Title: "Exam"})
	require.NoError(t, err)

	all := svc.All()
	all["2024-10-20"][0].Title = "changed"
	delete(all, "2024-10-20")

	again := svc.All()
	assert.Equal(t, "Exam", again["2024-10-20"][0].Title)
}

func TestCalendarServiceSweepRetention(t *testing.T) {
	old := calendarNow.AddDate(0, 0, -40)
	recent := calendarNow.AddDate(0, 0, -5)
	repo := &calendarRepoStub{loadRes: models.EventsByDate{
		"2024-09-01": {{ID: "old", Title: "Old", Completed: true, CompletedDate: &old}},
		"2024-10-10": {{ID: "recent", Title: "Recent", Completed: true, CompletedDate: &recent}},
	}}
	metrics := NewMetricsService()
	svc := NewCalendarService(repo, DefaultRetentionWindow, nil, metrics, nil, nil)
	svc.now = func() time.Time { return calendarNow }
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))

	result, err := svc.SweepRetention(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetentionResult{Removed: 1, Remaining: 1, SweptAt: calendarNow}, result)
	assert.NotContains(t, svc.All(), "2024-09-01")
	assert.Equal(t, 1, repo.saveCount())

	result, err = svc.SweepRetention(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Removed)
	assert.Equal(t, 1, repo.saveCount(), "nothing removed, nothing written")
}

func TestCalendarServiceSweepRetentionWriteFailure(t *testing.T) {
	old := calendarNow.AddDate(0, 0, -40)
	repo := &calendarRepoStub{loadRes: models.EventsByDate{
		"2024-09-01": {{ID: "old", Title: "Old", Completed: true, CompletedDate: &old}},
	}}
	svc, _ := newTestCalendarService(repo)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))
	repo.saveErr = errors.New("boom")

	result, err := svc.SweepRetention(ctx)
	assert.ErrorIs(t, err, appErrors.ErrStorageWrite)
	assert.Equal(t, 1, result.Remaining)
	assert.Len(t, svc.All(), 1)
}

func TestCalendarServiceRetentionThroughQueue(t *testing.T) {
	old := calendarNow.AddDate(0, 0, -40)
	kv := storage.NewMemoryStore()
	repo := repository.NewCalendarRepository(kv)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, models.EventsByDate{
		"2024-09-01": {{ID: "old", Title: "Old", Completed: true, CompletedDate: &old}},
	}))

	svc, _ := newTestCalendarService(repo)
	require.NoError(t, svc.Load(ctx))

	queue := jobs.NewQueue("retention", svc.RetentionJobHandler(), jobs.QueueConfig{Workers: 1})
	queue.Start(ctx)
	defer queue.Stop()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		svc.StartRetention(loopCtx, queue, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(svc.All()) == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	persisted, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestCalendarServiceLoadsBlankCompletedDate(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, repository.CalendarEventsKey, []byte(`{
		"2024-01-01":[{"id":"done","title":"Done","completed":true,"completedDate":""}],
		"2099-01-01":[{"id":"later","title":"Later","completed":false}]
	}`)))
	repo := repository.NewCalendarRepository(kv)
	svc, _ := newTestCalendarService(repo)
	require.NoError(t, svc.Load(ctx))
	assert.Equal(t, 2, svc.All().Count())

	_, err := svc.AddEvent(ctx, "2024-10-16", CreateEventRequest{Title: "Quiz"})
	require.NoError(t, err)

	result, err := svc.SweepRetention(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	persisted, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted["2099-01-01"], 1)
	assert.Equal(t, "later", persisted["2099-01-01"][0].ID)
	assert.Len(t, persisted["2024-10-16"], 1)
	assert.Empty(t, persisted["2024-01-01"])
}

func TestCalendarServiceRefusesWritesAfterFailedLoad(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	raw := []byte(`{"2024-10-15":[{"id":"a","title":"Lab","completed":"yes"}]}`)
	require.NoError(t, kv.Set(ctx, repository.CalendarEventsKey, raw))

	svc, _ := newTestCalendarService(repository.NewCalendarRepository(kv))
	require.ErrorIs(t, svc.Load(ctx), appErrors.ErrStorageRead)
	assert.ErrorIs(t, svc.Ready(ctx), appErrors.ErrStorageRead)

	_, err := svc.AddEvent(ctx, "2024-10-15", CreateEventRequest{Title: "Quiz"})
	assert.ErrorIs(t, err, appErrors.ErrStorageRead)
	_, err = svc.ToggleCompletion(ctx, "2024-10-15", "a")
	assert.ErrorIs(t, err, appErrors.ErrStorageRead)
	_, err = svc.SweepRetention(ctx)
	assert.ErrorIs(t, err, appErrors.ErrStorageRead)

	stored, err := kv.Get(ctx, repository.CalendarEventsKey)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)
}

func TestCalendarServiceRetriesLoadBeforeWrite(t *testing.T) {
	ctx := context.Background()
	repo := &calendarRepoStub{
		loadRes: models.EventsByDate{"2024-10-15": {{ID: "a", Title: "Lab", Color: models.DefaultEventColor, Type: models.EventTypeCustom}}},
		loadErr: errors.New("timeout"),
	}
	svc, _ := newTestCalendarService(repo)
	require.Error(t, svc.Load(ctx))
	_, err := svc.AddEvent(ctx, "2024-10-15", CreateEventRequest{Title: "Quiz"})
	require.ErrorIs(t, err, appErrors.ErrStorageRead)
	assert.Equal(t, 0, repo.saveCount())

	repo.loadErr = nil
	_, err = svc.AddEvent(ctx, "2024-10-15", CreateEventRequest{Title: "Quiz"})
	require.NoError(t, err)
	events, err := svc.EventsOn("2024-10-15")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.NoError(t, svc.Ready(ctx))
}

func TestCalendarServiceStartRetentionStopsOnCancel(t *testing.T) {
	svc, _ := newTestCalendarService(&calendarRepoStub{})
	dispatcher := &dispatcherStub{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartRetention(ctx, dispatcher, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return dispatcher.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention loop did not stop")
	}
	for _, job := range dispatcher.jobs {
		assert.Equal(t, RetentionJobType, job.Type)
	}
}

func TestCalendarServiceReset(t *testing.T) {
	repo := &calendarRepoStub{}
	svc, rec := newTestCalendarService(repo)
	ctx := context.Background()
	_, err := svc.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: "Exam"})
	require.NoError(t, err)

	repo.clrErr = errors.New("denied")
	assert.ErrorIs(t, svc.Reset(ctx), appErrors.ErrStorageWrite)
	assert.Len(t, svc.All(), 1)

	repo.clrErr = nil
	require.NoError(t, svc.Reset(ctx))
	assert.Empty(t, svc.All())
	assert.Equal(t, models.ActionCleared, rec.changes[len(rec.changes)-1].Action)
}
