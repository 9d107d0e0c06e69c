package repository

import (
	"context"

	"github.com/noah-isme/attendance-tracker/internal/models"
	"github.com/noah-isme/attendance-tracker/pkg/storage"
)

// SubjectRepository persists the subject collection as one JSON array.
type SubjectRepository struct {
	kv storage.KV
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(kv storage.KV) *SubjectRepository {
	return &SubjectRepository{kv: kv}
}

// Load returns the stored subjects, or an empty slice when nothing was saved yet.
func (r *SubjectRepository) Load(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if _, err := loadJSON(ctx, r.kv, SubjectsKey, &subjects); err != nil {
		return nil, err
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

// Save overwrites the stored collection with subjects.
func (r *SubjectRepository) Save(ctx context.Context, subjects []models.Subject) error {
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return saveJSON(ctx, r.kv, SubjectsKey, subjects)
}

// Clear removes the stored collection.
func (r *SubjectRepository) Clear(ctx context.Context) error {
	return r.kv.Remove(ctx, SubjectsKey)
}
