package patterns

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/core/history"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

const (
	// Plays separated by more than this start a new listening session.
	sessionGap = 30 * time.Minute

	peakHourCount = 5
	analysisLookbackDays = 90
)

// HistorySource supplies the play events and track metadata the analyzer
// reads. Satisfied by the Plex client.
type HistorySource interface {
	FetchHistory(ctx context.Context, lookbackDays int) ([]model.PlayEvent, error)
	FetchTracksByIDs(ctx context.Context, ids []string) (map[string]model.TrackMetadata, error)
}

// GenreLookup resolves genres without hitting providers. Satisfied by the
// enrichment service in cache-only mode.
type GenreLookup interface {
	GetGenresAndMoodsCached(ctx context.Context, artist, album string) ([]string, []string)
}

// HistoryAnalyzer derives hourly genre preferences from recent play history.
type HistoryAnalyzer struct {
	source    HistorySource
	genres    GenreLookup
	accountID int64
}

// NewHistoryAnalyzer creates a HistoryAnalyzer.
func NewHistoryAnalyzer(source HistorySource, genres GenreLookup, accountID int64) *HistoryAnalyzer {
	return &HistoryAnalyzer{source: source, genres: genres, accountID: accountID}
}

// Analyze computes a fresh UserPatterns row. The caller (the pattern store)
// owns CreatedAt/ExpiresAt.
func (a *HistoryAnalyzer) Analyze(ctx context.Context) (*model.UserPatterns, error) {
	events, err := a.source.FetchHistory(ctx, analysisLookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for pattern analysis: %w", err)
	}
	events = history.FilterByAccount(events, a.accountID)
	if len(events) == 0 {
		return nil, fmt.Errorf("no play history to analyze")
	}

	ids := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.RatingKey]; ok {
			continue
		}
		seen[ev.RatingKey] = struct{}{}
		ids = append(ids, ev.RatingKey)
	}

	tracks, err := a.source.FetchTracksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks for pattern analysis: %w", err)
	}

	type hourGenre struct {
		hour  int
		genre string
	}
	playCounts := make(map[hourGenre]int)
	hourTotals := make(map[int]int)
	var from, to time.Time

	for _, ev := range events {
		if from.IsZero() || ev.ViewedAt.Before(from) {
			from = ev.ViewedAt
		}
		if ev.ViewedAt.After(to) {
			to = ev.ViewedAt
		}

		track, ok := tracks[ev.RatingKey]
		if !ok {
			continue // track no longer in the library
		}

		genres := track.Genres
		if len(genres) == 0 && a.genres != nil {
			genres, _ = a.genres.GetGenresAndMoodsCached(ctx, track.Artist, track.Album)
		}

		hour := ev.ViewedAt.Hour()
		hourTotals[hour]++
		for _, g := range genres {
			playCounts[hourGenre{hour: hour, genre: model.NormalizeCacheKey(g)}]++
		}
	}

	// Weight each (hour, genre) by its share of that hour's busiest genre.
	hourMax := make(map[int]int)
	for hg, n := range playCounts {
		if n > hourMax[hg.hour] {
			hourMax[hg.hour] = n
		}
	}

	prefs := make(model.HourlyPreferences, 0, len(playCounts))
	for hg, n := range playCounts {
		weight := 0.0
		if hourMax[hg.hour] > 0 {
			weight = float64(n) / float64(hourMax[hg.hour])
		}
		prefs = append(prefs, model.HourlyGenrePreference{
			Hour:      hg.hour,
			Genre:     hg.genre,
			Weight:    weight,
			PlayCount: n,
		})
	}
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].Hour != prefs[j].Hour {
			return prefs[i].Hour < prefs[j].Hour
		}
		if prefs[i].PlayCount != prefs[j].PlayCount {
			return prefs[i].PlayCount > prefs[j].PlayCount
		}
		return prefs[i].Genre < prefs[j].Genre
	})

	return &model.UserPatterns{
		HourlyGenrePreferences: prefs,
		PeakHours:              peakHours(hourTotals),
		SessionsAnalyzed:       countSessions(events),
		AnalyzedFrom:           from,
		AnalyzedTo:             to,
	}, nil
}

// peakHours returns the top hours by total plays, busiest first.
func peakHours(hourTotals map[int]int) model.IntList {
	hours := make([]int, 0, len(hourTotals))
	for h := range hourTotals {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if hourTotals[hours[i]] != hourTotals[hours[j]] {
			return hourTotals[hours[i]] > hourTotals[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > peakHourCount {
		hours = hours[:peakHourCount]
	}
	return model.IntList(hours)
}

// countSessions counts listening sessions, where a gap longer than
// sessionGap starts a new one.
func countSessions(events []model.PlayEvent) int {
	if len(events) == 0 {
		return 0
	}
	sorted := make([]model.PlayEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ViewedAt.Before(sorted[j].ViewedAt)
	})

	sessions := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ViewedAt.Sub(sorted[i-1].ViewedAt) > sessionGap {
			sessions++
		}
	}
	return sessions
}
