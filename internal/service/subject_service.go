package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
)

type subjectRepository interface {
	Load(ctx context.Context) ([]models.Subject, error)
	Save(ctx context.Context, subjects []models.Subject) error
	Clear(ctx context.Context) error
}

// CreateSubjectRequest captures fields for creating subjects. Counters always start at zero.
type CreateSubjectRequest struct {
	ID                 string `json:"id" validate:"omitempty,max=64"`
	Name               string `json:"name" validate:"required,max=100"`
	RequiredAttendance *int   `json:"requiredAttendance" validate:"omitempty,min=0,max=100"`
	Color              string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateSubjectRequest replaces every mutable field of a subject.
type UpdateSubjectRequest struct {
	Name               string `json:"name" validate:"required,max=100"`
	RequiredAttendance int    `json:"requiredAttendance" validate:"min=0,max=100"`
	TotalClasses       int    `json:"totalClasses" validate:"min=0,max=100000"`
	AttendedClasses    int    `json:"attendedClasses" validate:"min=0,max=100000"`
	Color              string `json:"color" validate:"omitempty,hexcolor"`
}

// EditCountsRequest overwrites both counters of a subject.
type EditCountsRequest struct {
	TotalClasses    *int `json:"totalClasses" validate:"required,min=0,max=100000"`
	AttendedClasses *int `json:"attendedClasses" validate:"required,min=0,max=100000"`
}

// MarkAttendanceRequest records one held class.
type MarkAttendanceRequest struct {
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Attended *bool  `json:"attended" validate:"required"`
}

// AttendanceOverview is the dashboard read model.
type AttendanceOverview struct {
	Overall  float64                 `json:"overall"`
	Subjects []models.SubjectSummary `json:"subjects"`
}

// SubjectService owns the subject collection. Every mutation builds the next
// snapshot, persists it whole, and only then swaps it into memory and notifies
// subscribers. A failed write leaves the in-memory collection untouched.
type SubjectService struct {
	mu       sync.Mutex
	repo     subjectRepository
	subjects []models.Subject
	// loadErr holds the last failed read. Mutations are refused while it is set
	// so an empty collection never overwrites a snapshot that exists but could not be read.
	loadErr error

	notifier  changePublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	now      func() time.Time
	newID    func() string
	newColor func() string
}

// NewSubjectService creates a new subject service. Call Load to read persisted state.
func NewSubjectService(repo subjectRepository, notifier changePublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		repo:      repo,
		subjects:  []models.Subject{},
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		newColor:  randomColor,
	}
}

// Load replaces the in-memory collection with the persisted one. On failure the
// collection is left as it was, mutations are refused until a later load
// succeeds, and a storage read error is returned for the caller to log.
func (s *SubjectService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Ready reports the last load failure, if any.
func (s *SubjectService) Ready(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// load must be called with s.mu held.
func (s *SubjectService) load(ctx context.Context) error {
	start := time.Now()
	subjects, err := s.repo.Load(ctx)
	s.metrics.ObserveStorage("read", models.TopicSubjects, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to load subjects", zap.Error(err))
		s.loadErr = appErrors.WrapAs(appErrors.ErrStorageRead, err, "failed to load subjects")
		return s.loadErr
	}
	s.loadErr = nil
	s.subjects = subjects
	s.refreshStats()
	s.publish(models.ActionReloaded, "")
	return nil
}

// ensureLoaded retries a failed load before a mutation. It must be called with s.mu held.
func (s *SubjectService) ensureLoaded(ctx context.Context) error {
	if s.loadErr == nil {
		return nil
	}
	return s.load(ctx)
}

// List returns a copy of the subjects in insertion order.
func (s *SubjectService) List() []models.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSubjects(s.subjects)
}

// Get returns the subject with id.
func (s *SubjectService) Get(id string) (*models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		subject := s.subjects[idx]
		return &subject, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
}

// Overview returns the overall percentage with every subject's projection.
func (s *SubjectService) Overview() AttendanceOverview {
	subjects := s.List()
	return AttendanceOverview{Overall: OverallAttendance(subjects), Subjects: Summarize(subjects)}
}

// Projection returns the summary of a single subject.
func (s *SubjectService) Projection(id string) (*models.SubjectSummary, error) {
	subject, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	summary := Summarize([]models.Subject{*subject})[0]
	return &summary, nil
}

// Add appends a new subject with zeroed counters.
func (s *SubjectService) Add(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid subject payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	subject := models.Subject{
		ID:                 req.ID,
		Name:               req.Name,
		RequiredAttendance: models.DefaultRequiredAttendance,
		Color:              req.Color,
	}
	if req.RequiredAttendance != nil {
		subject.RequiredAttendance = *req.RequiredAttendance
	}
	if subject.ID == "" {
		subject.ID = s.newID()
	}
	if subject.Color == "" {
		subject.Color = s.newColor()
	}
	if s.indexOf(subject.ID) >= 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject id already exists")
	}

	next := append(cloneSubjects(s.subjects), subject)
	if err := s.commit(ctx, next, models.ActionCreated, subject.ID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Remove deletes the subject with id. Unknown ids are a no-op.
func (s *SubjectService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	next := make([]models.Subject, 0, len(s.subjects)-1)
	next = append(next, s.subjects[:idx]...)
	next = append(next, s.subjects[idx+1:]...)
	return s.commit(ctx, next, models.ActionDeleted, id)
}

// Update replaces the subject with id wholesale. Unknown ids are a no-op and
// return a nil subject.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid subject payload")
	}
	if err := validateCounts(req.TotalClasses, req.AttendedClasses); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, nil
	}
	updated := models.Subject{
		ID:                 id,
		Name:               req.Name,
		RequiredAttendance: req.RequiredAttendance,
		TotalClasses:       req.TotalClasses,
		AttendedClasses:    req.AttendedClasses,
		Color:              req.Color,
	}
	if updated.Color == "" {
		updated.Color = s.subjects[idx].Color
	}
	next := cloneSubjects(s.subjects)
	next[idx] = updated
	if err := s.commit(ctx, next, models.ActionUpdated, id); err != nil {
		return nil, err
	}
	return &updated, nil
}

// EditCounts overwrites both counters after checking 0 <= attended <= total.
func (s *SubjectService) EditCounts(ctx context.Context, id string, req EditCountsRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid class counts")
	}
	if err := validateCounts(*req.TotalClasses, *req.AttendedClasses); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, nil
	}
	next := cloneSubjects(s.subjects)
	next[idx].TotalClasses = *req.TotalClasses
	next[idx].AttendedClasses = *req.AttendedClasses
	if err := s.commit(ctx, next, models.ActionUpdated, id); err != nil {
		return nil, err
	}
	updated := next[idx]
	return &updated, nil
}

// MarkAttendance counts one held class for the subject, attended or not. The
// date is validated and logged but only the rolling counters are kept.
// Unknown ids are a no-op and return a nil subject.
func (s *SubjectService) MarkAttendance(ctx context.Context, id string, req MarkAttendanceRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid attendance payload")
	}
	date := req.Date
	if date == "" {
		date = s.now().Format(models.DateLayout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, nil
	}
	if s.subjects[idx].TotalClasses >= models.MaxClassCount {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class counts must not exceed %d", models.MaxClassCount))
	}
	next := cloneSubjects(s.subjects)
	next[idx].TotalClasses++
	if *req.Attended {
		next[idx].AttendedClasses++
	}
	if err := s.commit(ctx, next, models.ActionMarked, id); err != nil {
		return nil, err
	}
	s.logger.Debug("attendance marked",
		zap.String("subject_id", id),
		zap.String("date", date),
		zap.Bool("attended", *req.Attended))
	updated := next[idx]
	return &updated, nil
}

// Reset removes the persisted collection and empties memory.
func (s *SubjectService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.repo.Clear(ctx)
	s.metrics.ObserveStorage("remove", models.TopicSubjects, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to clear subjects", zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err, "failed to clear subjects")
	}
	s.loadErr = nil
	s.subjects = []models.Subject{}
	s.metrics.RecordMutation(models.TopicSubjects, string(models.ActionCleared))
	s.refreshStats()
	s.publish(models.ActionCleared, "")
	return nil
}

// commit must be called with s.mu held.
func (s *SubjectService) commit(ctx context.Context, next []models.Subject, action models.ChangeAction, id string) error {
	start := time.Now()
	err := s.repo.Save(ctx, next)
	s.metrics.ObserveStorage("write", models.TopicSubjects, time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to save subjects",
			zap.String("action", string(action)),
			zap.String("subject_id", id),
			zap.Error(err))
		return appErrors.WrapAs(appErrors.ErrStorageWrite, err, "failed to save subjects")
	}
	s.subjects = next
	s.metrics.RecordMutation(models.TopicSubjects, string(action))
	s.refreshStats()
	s.publish(action, id)
	return nil
}

func (s *SubjectService) publish(action models.ChangeAction, id string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(models.Change{Topic: models.TopicSubjects, Action: action, ID: id, At: s.now().UTC()})
}

func (s *SubjectService) refreshStats() {
	s.metrics.SetSubjectStats(len(s.subjects), OverallAttendance(s.subjects))
}

func (s *SubjectService) indexOf(id string) int {
	for i := range s.subjects {
		if s.subjects[i].ID == id {
			return i
		}
	}
	return -1
}

func validateCounts(total, attended int) error {
	if total < 0 || attended < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "class counts must not be negative")
	}
	if attended > total {
		return appErrors.Clone(appErrors.ErrValidation, "attended classes cannot exceed total classes")
	}
	if total > models.MaxClassCount {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class counts must not exceed %d", models.MaxClassCount))
	}
	return nil
}

func cloneSubjects(in []models.Subject) []models.Subject {
	out := make([]models.Subject, len(in))
	copy(out, in)
	return out
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}
