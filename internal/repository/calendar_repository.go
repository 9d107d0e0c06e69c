package repository

import (
	"context"

	"github.com/noah-isme/attendance-tracker/internal/models"
	"github.com/noah-isme/attendance-tracker/pkg/storage"
)

// CalendarRepository persists the date to events mapping as one JSON object.
type CalendarRepository struct {
	kv storage.KV
}

// NewCalendarRepository creates a new repository instance.
func NewCalendarRepository(kv storage.KV) *CalendarRepository {
	return &CalendarRepository{kv: kv}
}

// Load returns the stored events, or an empty mapping when nothing was saved yet.
func (r *CalendarRepository) Load(ctx context.Context) (models.EventsByDate, error) {
	var events models.EventsByDate
	if _, err := loadJSON(ctx, r.kv, CalendarEventsKey, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = models.EventsByDate{}
	}
	return events, nil
}

// Save overwrites the stored mapping with events.
func (r *CalendarRepository) Save(ctx context.Context, events models.EventsByDate) error {
	if events == nil {
		events = models.EventsByDate{}
	}
	return saveJSON(ctx, r.kv, CalendarEventsKey, events)
}

// Clear removes the stored mapping.
func (r *CalendarRepository) Clear(ctx context.Context) error {
	return r.kv.Remove(ctx, CalendarEventsKey)
}
