package service

import (
	"time"

	"github.com/noah-isme/attendance-tracker/internal/models"
)

// DefaultRetentionWindow is how long completed events are kept.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// ApplyRetention returns the events worth keeping and how many were dropped.
// Incomplete events always survive. Completed events survive while their
// completion is newer than now-window; a missing completion time counts as aged
// out. Dates left without events are dropped. The input is not modified.
func ApplyRetention(events models.EventsByDate, now time.Time, window time.Duration) (models.EventsByDate, int) {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	cutoff := now.Add(-window)

	kept := make(models.EventsByDate, len(events))
	removed := 0
	for date, bucket := range events {
		survivors := make([]models.CalendarEvent, 0, len(bucket))
		for _, ev := range bucket {
			if retained(ev, cutoff) {
				survivors = append(survivors, ev)
				continue
			}
			removed++
		}
		if len(survivors) > 0 {
			kept[date] = survivors
		}
	}
	return kept.Clone(), removed
}

func retained(ev models.CalendarEvent, cutoff time.Time) bool {
	if !ev.Completed {
		return true
	}
	return ev.CompletedDate != nil && ev.CompletedDate.After(cutoff)
}
