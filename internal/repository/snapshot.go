package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/attendance-tracker/pkg/storage"
)

// Persisted record keys.
const (
	SubjectsKey       = "subjects"
	CalendarEventsKey = "calendar_events"
)

// loadJSON decodes the value under key into dest. It reports false when the key is absent.
func loadJSON(ctx context.Context, kv storage.KV, key string, dest interface{}) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// saveJSON replaces the whole value under key.
func saveJSON(ctx context.Context, kv storage.KV, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
