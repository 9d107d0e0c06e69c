package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker/internal/models"
	"github.com/noah-isme/attendance-tracker/internal/repository"
	appErrors "github.com/noah-isme/attendance-tracker/pkg/errors"
	"github.com/noah-isme/attendance-tracker/pkg/storage"
)

type resetStub struct {
	calls int
	err   error
}

func (r *resetStub) Reset(ctx context.Context) error {
	r.calls++
	return r.err
}

func TestDataServiceRequiresConfirmation(t *testing.T) {
	store := &resetStub{}
	svc := NewDataService(nil, store)

	err := svc.ClearAll(context.Background(), ClearDataRequest{})
	assert.ErrorIs(t, err, appErrors.ErrConfirmationRequired)
	assert.Zero(t, store.calls)
}

func TestDataServiceAttemptsEveryStore(t *testing.T) {
	failing := &resetStub{err: errors.New("locked")}
	ok := &resetStub{}
	svc := NewDataService(nil, failing, ok)

	err := svc.ClearAll(context.Background(), ClearDataRequest{Confirm: true})
	assert.ErrorIs(t, err, appErrors.ErrStorageWrite)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestDataServiceClearsBothCollections(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	notifier := NewNotifier(8, nil)
	changes, unsubscribe := notifier.Subscribe()
	defer unsubscribe()

	subjects := NewSubjectService(repository.NewSubjectRepository(kv), notifier, nil, nil, nil)
	calendar := NewCalendarService(repository.NewCalendarRepository(kv), 0, notifier, nil, nil, nil)
	_, err := subjects.Add(ctx, CreateSubjectRequest{Name: "Physics"})
	require.NoError(t, err)
	_, err = calendar.AddEvent(ctx, "2024-10-20", CreateEventRequest{Title: "Exam"})
	require.NoError(t, err)
	require.Equal(t, 2, kv.Keys())

	svc := NewDataService(nil, subjects, calendar)
	require.NoError(t, svc.ClearAll(ctx, ClearDataRequest{Confirm: true}))

	assert.Empty(t, subjects.List())
	assert.Empty(t, calendar.All())
	assert.Zero(t, kv.Keys())

	var cleared []string
	for len(changes) > 0 {
		change := <-changes
		if change.Action == models.ActionCleared {
			cleared = append(cleared, change.Topic)
		}
	}
	assert.Equal(t, []string{models.TopicSubjects, models.TopicCalendarEvents}, cleared)
}
