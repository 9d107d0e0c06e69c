package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
	"github.com/noah-isme/attendance-tracker/pkg/jobs"
)

// RetentionJobType identifies retention sweeps on the job queue.
const RetentionJobType = "calendar.retention"

type calendarRepository interface {
	Load(ctx context.Context) (models.EventsByDate, error)
	Save(ctx context.Context, events models.EventsByDate) error
	Clear(ctx context.Context) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// CreateEventRequest describes a new calendar event. The date comes from the path.
type CreateEventRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Time        string           `json:"time" validate:"omitempty,datetime=15:04"`
	Description string           `json:"description" validate:"max=1000"`
	Color       string           `json:"color" validate:"omitempty,hexcolor"`
	Type        models.EventType `json:"type" validate:"omitempty,oneof=attendance custom"`
}

// RetentionResult reports the outcome of a sweep.
type RetentionResult struct {
	Removed   int       `json:"removed"`
	Remaining int       `json:"remaining"`
	SweptAt   time.Time `json:"sweptAt"`
}

// CalendarService owns the date-keyed event collection with the same
// persist-then-swap discipline as SubjectService.
type CalendarService struct {
	mu      sync.Mutex
	repo    calendarRepository
	events  models.EventsByDate
	loadErr error

	window    time.Duration
	notifier  changePublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewCalendarService wires the calendar service. A non-positive window uses DefaultRetentionWindow.
func NewCalendarService(repo calendarRepository, window time.Duration, notifier changePublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		repo:      repo,
		events:    models.EventsByDate{},
		window:    window,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load reads persisted events. On failure the collection is left as it was and
// mutations are refused until a later load succeeds.
func (s *CalendarService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Ready reports the last load failure, if any.
func (s *CalendarService) Ready(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *CalendarService) load(ctx context.Context) error {
	start := time.Now()
	events, err := s.repo.Load(ctx)
	s.metrics.ObserveStorage("read", models.TopicCalendarEvents, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to load calendar events", zap.Error(err))
		s.loadErr = appErrors.WrapAs(appErrors.ErrStorageRead, err, "failed to load calendar events")
		return s.loadErr
	}
	s.loadErr = nil
	s.events = events
	s.metrics.SetEventCount(s.events.Count())
	s.publish(models.ActionReloaded, "")
	return nil
}

func (s *CalendarService) ensureLoaded(ctx context.Context) error {
	if s.loadErr == nil {
		return nil
	}
	return s.load(ctx)
}

// All returns a copy of every event keyed by date.
func (s *CalendarService) All() models.EventsByDate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Clone()
}

// EventsOn returns the events of one date in insertion order.
func (s *CalendarService) EventsOn(date string) ([]models.CalendarEvent, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.EventsByDate{date: s.events[date]}.Clone()[date], nil
}

// AddEvent files a new event under date.
func (s *CalendarService) AddEvent(ctx context.Context, date string, req CreateEventRequest) (*models.CalendarEvent, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid event payload")
	}

	event := models.CalendarEvent{
		ID:          s.newID(),
		Title:       req.Title,
		Date:        date,
		Time:        req.Time,
		Description: strings.TrimSpace(req.Description),
		Color:       req.Color,
		Type:        req.Type,
	}
	if event.Color == "" {
		event.Color = models.DefaultEventColor
	}
	if event.Type == "" {
		event.Type = models.EventTypeCustom
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	next := s.events.Clone()
	next[date] = append(next[date], event)
	if err := s.commit(ctx, next, models.ActionCreated, event.ID); err != nil {
		return nil, err
	}
	return &event, nil
}

// ToggleCompletion flips the completed flag of an event. Completing stamps
// CompletedDate; reopening clears it. Unknown events are a no-op and return nil.
func (s *CalendarService) ToggleCompletion(ctx context.Context, date, id string) (*models.CalendarEvent, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	idx := -1
	for i, ev := range s.events[date] {
		if ev.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	next := s.events.Clone()
	event := &next[date][idx]
	event.Completed = !event.Completed
	if event.Completed {
		at := s.now().UTC()
		event.CompletedDate = &at
	} else {
		event.CompletedDate = nil
	}
	if err := s.commit(ctx, next, models.ActionToggled, id); err != nil {
		return nil, err
	}
	toggled := models.EventsByDate{date: next[date][idx : idx+1]}.Clone()[date][0]
	return &toggled, nil
}

// SweepRetention drops completed events older than the retention window and
// persists only when something was removed.
func (s *CalendarService) SweepRetention(ctx context.Context) (RetentionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return RetentionResult{}, err
	}

	now := s.now().UTC()
	kept, removed := ApplyRetention(s.events, now, s.window)
	result := RetentionResult{Removed: removed, Remaining: kept.Count(), SweptAt: now}
	if removed == 0 {
		return result, nil
	}
	if err := s.commit(ctx, kept, models.ActionPurged, ""); err != nil {
		return RetentionResult{Remaining: s.events.Count(), SweptAt: now}, err
	}
	s.metrics.RecordRetention(removed)
	s.logger.Info("calendar retention sweep", zap.Int("removed", removed), zap.Int("remaining", result.Remaining))
	return result, nil
}

// RetentionJobHandler adapts SweepRetention to the job queue.
func (s *CalendarService) RetentionJobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		if job.Type != RetentionJobType {
			s.logger.Warn("ignoring unknown job", zap.String("type", job.Type))
			return nil
		}
		_, err := s.SweepRetention(ctx)
		return err
	}
}

// StartRetention enqueues a sweep immediately and then every interval until ctx
// is cancelled. It returns once the loop has exited.
func (s *CalendarService) StartRetention(ctx context.Context, dispatcher jobDispatcher, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.dispatchRetention(dispatcher)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchRetention(dispatcher)
		}
	}
}

func (s *CalendarService) dispatchRetention(dispatcher jobDispatcher) {
	if err := dispatcher.Enqueue(jobs.Job{Type: RetentionJobType}); err != nil {
		s.logger.Warn("failed to enqueue retention sweep", zap.Error(err))
	}
}

// Reset removes the persisted events and empties memory.
func (s *CalendarService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.repo.Clear(ctx)
	s.metrics.ObserveStorage("remove", models.TopicCalendarEvents, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to clear calendar events", zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err, "failed to clear calendar events")
	}
	s.loadErr = nil
	s.events = models.EventsByDate{}
	s.metrics.RecordMutation(models.TopicCalendarEvents, string(models.ActionCleared))
	s.metrics.SetEventCount(0)
	s.publish(models.ActionCleared, "")
	return nil
}

// commit must be called with s.mu held.
func (s *CalendarService) commit(ctx context.Context, next models.EventsByDate, action models.ChangeAction, id string) error {
	start := time.Now()
	err := s.repo.Save(ctx, next)
	s.metrics.ObserveStorage("write", models.TopicCalendarEvents, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to save calendar events",
			zap.String("action", string(action)),
			zap.String("event_id", id),
			zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err, "failed to save calendar events")
	}
	s.events = next
	s.metrics.RecordMutation(models.TopicCalendarEvents, string(action))
	s.metrics.SetEventCount(next.Count())
	s.publish(action, id)
	return nil
}

func (s *CalendarService) publish(action models.ChangeAction, id string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(models.Change{Topic: models.TopicCalendarEvents, Action: action, ID: id, At: s.now().UTC()})
}

func validateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return appErrors.WrapAs(appErrors.ErrValidation, err, "date must use YYYY-MM-DD")
	}
	return nil
}
