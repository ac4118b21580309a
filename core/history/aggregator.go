// Package history collapses raw media-server play events into the per-track
// aggregates the candidate builder consumes.
package history

import (
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

// Aggregate collapses play events into per-track (playCount, lastPlayedAt)
// stats, keyed by rating key.
func Aggregate(events []model.PlayEvent) map[string]model.TrackStats {
	stats := make(map[string]model.TrackStats)
	for _, ev := range events {
		if ev.RatingKey == "" {
			continue
		}
		s := stats[ev.RatingKey]
		s.RatingKey = ev.RatingKey
		s.PlayCount++
		if s.LastPlayedAt == nil || ev.ViewedAt.After(*s.LastPlayedAt) {
			viewed := ev.ViewedAt
			s.LastPlayedAt = &viewed
		}
		stats[ev.RatingKey] = s
	}
	return stats
}

// AggregateInRange is Aggregate restricted to events with from <= viewedAt < to.
// Used for throwback scoring, which only counts plays inside its lookback window.
func AggregateInRange(events []model.PlayEvent, from, to time.Time) map[string]model.TrackStats {
	filtered := make([]model.PlayEvent, 0, len(events))
	for _, ev := range events {
		if ev.ViewedAt.Before(from) || !ev.ViewedAt.Before(to) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return Aggregate(filtered)
}

// FilterByAccount keeps only events belonging to the given account.
// accountID 0 disables the filter.
func FilterByAccount(events []model.PlayEvent, accountID int64) []model.PlayEvent {
	if accountID == 0 {
		return events
	}
	filtered := make([]model.PlayEvent, 0, len(events))
	for _, ev := range events {
		if ev.AccountID == accountID {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}
