// Package builder joins aggregated play history with enrichment and pattern
// data to produce the scored candidate pool the selection engine consumes.
package builder

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/core/scoring"
	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
)

// TrackResolver maps history identities to library track metadata. History
// entries whose id is absent from the result have left the library and are
// dropped silently.
type TrackResolver interface {
	FetchTracksByIDs(ctx context.Context, ids []string) (map[string]model.TrackMetadata, error)
}

// Enricher is the cache-only enrichment surface used during a build.
// Providers are never called on this path.
type Enricher interface {
	ResolveTrack(ctx context.Context, track model.TrackMetadata) (genres, moods []string)
	TrackUsage(artist string)
}

// PatternSource loads learned listening patterns. Nil results are fine: they
// only disable the pattern-aware scoring boost.
type PatternSource interface {
	Load(ctx context.Context) *model.UserPatterns
}

// Options parameterizes one build.
type Options struct {
	Strategy scoring.Strategy

	// GenreFilter is the legacy single-genre substring filter. Genres and
	// Moods are match-any filters; all three are case-insensitive.
	GenreFilter string
	Genres      []string
	Moods       []string

	// Theme of the playlist being generated; feeds the scoring boosts, not
	// the filters.
	TargetGenres []string
	TargetMoods  []string

	// WindowStats carries per-track play counts restricted to the throwback
	// lookback window. Ignored by the other strategies.
	WindowStats map[string]model.TrackStats

	Now time.Time
}

// Builder produces scored candidates.
type Builder struct {
	resolver TrackResolver
	enricher Enricher
	patterns PatternSource
	engine   *scoring.Engine
}

// NewBuilder creates a candidate builder. patterns may be nil.
func NewBuilder(resolver TrackResolver, enricher Enricher, patterns PatternSource, engine *scoring.Engine) *Builder {
	return &Builder{
		resolver: resolver,
		enricher: enricher,
		patterns: patterns,
		engine:   engine,
	}
}

// Build resolves aggregated history to library tracks, enriches and scores
// them, applies the genre/mood filters, and returns candidates ordered by
// descending score. Pattern-load failures only cost the boost; track ids no
// longer in the library are dropped.
func (b *Builder) Build(ctx context.Context, stats map[string]model.TrackStats, opts Options) ([]model.CandidateTrack, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tracks, err := b.resolver.FetchTracksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var patterns *model.UserPatterns
	if b.patterns != nil {
		patterns = b.patterns.Load(ctx)
	}

	candidates := make([]model.CandidateTrack, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		meta, ok := tracks[id]
		if !ok {
			dropped++
			continue
		}

		genres, moods := b.enricher.ResolveTrack(ctx, meta)
		if !matchesFilters(genres, moods, opts) {
			continue
		}

		s := stats[id]
		breakdown := b.engine.Score(opts.Strategy, scoring.Context{
			Stars:             meta.Rating / 2,
			Rated:             meta.Rating > 0,
			PlayCount:         s.PlayCount,
			PlayCountInWindow: windowPlayCount(opts.WindowStats, id),
			SkipCount:         meta.SkipCount,
			LastPlayedAt:      s.LastPlayedAt,
			AddedAt:           meta.AddedAt,
			Genres:            genres,
			Moods:             moods,
			TargetGenres:      opts.TargetGenres,
			TargetMoods:       opts.TargetMoods,
			Patterns:          patterns,
			Now:               opts.Now,
		})

		candidates = append(candidates, model.CandidateTrack{
			RatingKey:    id,
			Title:        meta.Title,
			Artist:       meta.Artist,
			Album:        meta.Album,
			Genres:       genres,
			Moods:        moods,
			PlayCount:    s.PlayCount,
			LastPlayedAt: s.LastPlayedAt,
			FinalScore:   breakdown.FinalScore,
			Breakdown:    breakdown,
		})
	}

	if dropped > 0 {
		logger.Debug("history entries no longer resolve to library tracks",
			logger.Int("dropped", dropped))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})

	b.trackUsage(candidates)
	return candidates, nil
}

// trackUsage queues one best-effort last-used update per distinct artist in
// the pool. The queue is non-blocking; drops and failures stay internal.
func (b *Builder) trackUsage(candidates []model.CandidateTrack) {
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		key := model.NormalizeCacheKey(c.Artist)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		b.enricher.TrackUsage(c.Artist)
	}
}

func windowPlayCount(window map[string]model.TrackStats, id string) uint {
	if window == nil {
		return 0
	}
	return window[id].PlayCount
}

// matchesFilters applies the legacy substring filter and the match-any
// genre/mood filters. Empty filters pass everything.
func matchesFilters(genres, moods []string, opts Options) bool {
	if opts.GenreFilter != "" && !containsSubstring(genres, opts.GenreFilter) {
		return false
	}
	if len(opts.Genres) > 0 && !matchesAny(genres, opts.Genres) {
		return false
	}
	if len(opts.Moods) > 0 && !matchesAny(moods, opts.Moods) {
		return false
	}
	return true
}

func containsSubstring(values []string, filter string) bool {
	needle := strings.ToLower(strings.TrimSpace(filter))
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func matchesAny(values, wanted []string) bool {
	for _, w := range wanted {
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}
