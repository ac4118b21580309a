// Package generator ties the pipeline together: history → candidates →
// selection → playlist on the media server → local record.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdabushayem62/plex-playlists-sub003/config"
	"github.com/mdabushayem62/plex-playlists-sub003/core/builder"
	"github.com/mdabushayem62/plex-playlists-sub003/core/history"
	"github.com/mdabushayem62/plex-playlists-sub003/core/scoring"
	"github.com/mdabushayem62/plex-playlists-sub003/core/selection"
	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// MediaServer is the slice of the Plex client the generator needs.
type MediaServer interface {
	FetchHistory(ctx context.Context, lookbackDays int) ([]model.PlayEvent, error)
	FetchTracksByIDs(ctx context.Context, ids []string) (map[string]model.TrackMetadata, error)
	TrackCount(ctx context.Context) (int, error)
	FindPlaylist(ctx context.Context, title string) (string, error)
	CreatePlaylist(ctx context.Context, title string, ratingKeys []string) (string, error)
	UpdatePlaylist(ctx context.Context, playlistKey string, ratingKeys []string) error
}

// Window is one of the playlists the generator maintains.
type Window struct {
	Name     string
	Title    string
	Strategy scoring.Strategy
}

var windows = map[string]Window{
	"morning":   {Name: "morning", Title: "Morning Mix", Strategy: scoring.StrategyBalanced},
	"afternoon": {Name: "afternoon", Title: "Afternoon Mix", Strategy: scoring.StrategyBalanced},
	"evening":   {Name: "evening", Title: "Evening Mix", Strategy: scoring.StrategyBalanced},
	"quality":   {Name: "quality", Title: "Top Shelf", Strategy: scoring.StrategyQuality},
	"discovery": {Name: "discovery", Title: "Discovery Mix", Strategy: scoring.StrategyDiscovery},
	"throwback": {Name: "throwback", Title: "Throwback Mix", Strategy: scoring.StrategyThrowback},
}

// discoveryTitle is checked when tuning the exploration rate.
const discoveryTitle = "Discovery Mix"

// ParseWindow resolves a window name. An empty name picks the time-of-day
// window matching the given instant.
func ParseWindow(name string, now time.Time) (Window, error) {
	if name == "" {
		switch hour := now.Hour(); {
		case hour < 12:
			return windows["morning"], nil
		case hour < 18:
			return windows["afternoon"], nil
		default:
			return windows["evening"], nil
		}
	}

	w, ok := windows[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Window{}, fmt.Errorf("unknown playlist window %q", name)
	}
	return w, nil
}

// WindowNames lists the supported windows for CLI/API help.
func WindowNames() []string {
	return []string{"morning", "afternoon", "evening", "quality", "discovery", "throwback"}
}

// Request parameterizes one generation run.
type Request struct {
	// Window selects strategy and playlist title; empty picks by the clock.
	Window string
	// Strategy overrides the window's strategy when non-empty.
	Strategy string

	TargetCount int // 0 uses the configured default

	GenreFilter string
	Genres      []string
	Moods       []string
}

// Generator runs the full pipeline.
type Generator struct {
	server    MediaServer
	enricher  builder.Enricher
	patterns  builder.PatternSource
	scorer    *scoring.Engine
	selector  *selection.Engine
	playlists repository.PlaylistRepository
	cfg       *config.Config

	now  func() time.Time
	rand *rand.Rand
}

// NewGenerator creates a playlist generator. patterns may be nil.
func NewGenerator(
	server MediaServer,
	enricher builder.Enricher,
	patterns builder.PatternSource,
	scorer *scoring.Engine,
	selector *selection.Engine,
	playlists repository.PlaylistRepository,
	cfg *config.Config,
) *Generator {
	return &Generator{
		server:    server,
		enricher:  enricher,
		patterns:  patterns,
		scorer:    scorer,
		selector:  selector,
		playlists: playlists,
		cfg:       cfg,
		now:       time.Now,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// staticResolver serves the builder from tracks already fetched this run, so
// the metadata round-trip happens exactly once.
type staticResolver map[string]model.TrackMetadata

func (r staticResolver) FetchTracksByIDs(_ context.Context, _ []string) (map[string]model.TrackMetadata, error) {
	return r, nil
}

// Generate runs one end-to-end generation. When selection cannot fill the
// target, the partial playlist is still created and the returned error wraps
// selection.ErrInsufficientCandidates so the caller can report it.
func (g *Generator) Generate(ctx context.Context, req Request) (*model.Playlist, error) {
	now := g.now()

	window, err := ParseWindow(req.Window, now)
	if err != nil {
		return nil, err
	}
	strategy := window.Strategy
	if req.Strategy != "" {
		strategy = scoring.ParseStrategy(req.Strategy)
	}
	targetCount := req.TargetCount
	if targetCount <= 0 {
		targetCount = g.cfg.TargetPlaylistSize
	}

	lookbackDays := g.cfg.HistoryLookbackDays
	if strategy == scoring.StrategyThrowback {
		lookbackDays = g.cfg.ThrowbackMaxDays
	}

	events, err := g.server.FetchHistory(ctx, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load play history: %w", err)
	}
	events = history.FilterByAccount(events, g.cfg.PlexAccountID)

	stats := history.Aggregate(events)
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	tracks, err := g.server.FetchTracksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load track metadata: %w", err)
	}

	var windowStats map[string]model.TrackStats
	if strategy == scoring.StrategyThrowback {
		windowStats = history.AggregateInRange(events,
			now.AddDate(0, 0, -g.cfg.ThrowbackMaxDays),
			now.AddDate(0, 0, -g.cfg.ThrowbackMinDays))
	}

	b := builder.NewBuilder(staticResolver(tracks), g.enricher, g.patterns, g.scorer)
	candidates, err := b.Build(ctx, stats, builder.Options{
		Strategy:    strategy,
		GenreFilter: req.GenreFilter,
		Genres:      req.Genres,
		Moods:       req.Moods,
		WindowStats: windowStats,
		Now:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build candidates: %w", err)
	}
	if strategy == scoring.StrategyDiscovery {
		candidates = g.filterDiscovery(candidates, now)
	}

	result, selErr := g.selector.Select(candidates, selection.Options{
		TargetCount:          targetCount,
		MaxPerArtist:         g.cfg.MaxPerArtist,
		MaxGenreShare:        g.cfg.MaxGenreShare,
		LibrarySize:          g.librarySize(ctx),
		RecentSkipRate:       skipRate(tracks),
		HasDiscoveryPlaylist: g.hasDiscoveryPlaylist(ctx),
		Rand:                 g.rand,
	})
	if selErr != nil && !errors.Is(selErr, selection.ErrInsufficientCandidates) {
		return nil, selErr
	}
	if len(result.Selected) == 0 {
		return nil, fmt.Errorf("no candidates for window %q: %w", window.Name, selection.ErrInsufficientCandidates)
	}
	if selErr != nil {
		logger.Warn("playlist generated short of target",
			logger.String("window", window.Name),
			logger.Int("selected", len(result.Selected)),
			logger.Int("target", targetCount))
	}

	playlist, err := g.publish(ctx, window, strategy, result.Selected)
	if err != nil {
		return nil, err
	}

	logger.Info("playlist generated",
		logger.String("window", window.Name),
		logger.String("strategy", string(strategy)),
		logger.Int("tracks", len(result.Selected)),
		logger.String("externalId", playlist.ExternalID))
	return playlist, selErr
}

// publish creates or replaces the window's playlist on the media server and
// records it locally.
func (g *Generator) publish(ctx context.Context, window Window, strategy scoring.Strategy, selected []model.CandidateTrack) (*model.Playlist, error) {
	ratingKeys := make([]string, 0, len(selected))
	for _, c := range selected {
		ratingKeys = append(ratingKeys, c.RatingKey)
	}

	plexKey, err := g.server.FindPlaylist(ctx, window.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing playlist: %w", err)
	}
	if plexKey != "" {
		if err := g.server.UpdatePlaylist(ctx, plexKey, ratingKeys); err != nil {
			return nil, err
		}
	} else {
		plexKey, err = g.server.CreatePlaylist(ctx, window.Title, ratingKeys)
		if err != nil {
			return nil, err
		}
	}

	playlist := &model.Playlist{
		ExternalID:    uuid.NewString(),
		PlexRatingKey: plexKey,
		Title:         window.Title,
		Window:        window.Name,
		Strategy:      string(strategy),
		TrackCount:    len(selected),
		Tracks:        make([]model.PlaylistTrack, 0, len(selected)),
	}
	for i, c := range selected {
		breakdown, err := json.Marshal(c.Breakdown)
		if err != nil {
			breakdown = nil
		}
		playlist.Tracks = append(playlist.Tracks, model.PlaylistTrack{
			Position:      i + 1,
			RatingKey:     c.RatingKey,
			Title:         c.Title,
			Artist:        c.Artist,
			Album:         c.Album,
			Score:         c.FinalScore,
			BreakdownJSON: string(breakdown),
		})
	}

	if err := g.playlists.Create(playlist); err != nil {
		// The playlist exists on the server; losing the local record is
		// reported but not fatal.
		logger.Error("failed to save playlist record", logger.ErrorField(err))
	}
	return playlist, nil
}

// filterDiscovery drops tracks played within the discovery minimum window;
// never-played tracks stay in.
func (g *Generator) filterDiscovery(candidates []model.CandidateTrack, now time.Time) []model.CandidateTrack {
	cutoff := now.AddDate(0, 0, -g.cfg.DiscoveryMinDays)
	kept := make([]model.CandidateTrack, 0, len(candidates))
	for _, c := range candidates {
		if c.LastPlayedAt != nil && c.LastPlayedAt.After(cutoff) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (g *Generator) librarySize(ctx context.Context) int {
	size, err := g.server.TrackCount(ctx)
	if err != nil {
		logger.Debug("failed to fetch library size", logger.ErrorField(err))
		return 0
	}
	return size
}

func (g *Generator) hasDiscoveryPlaylist(ctx context.Context) bool {
	key, err := g.server.FindPlaylist(ctx, discoveryTitle)
	if err != nil {
		logger.Debug("failed to check for discovery playlist", logger.ErrorField(err))
		return false
	}
	return key != ""
}

// skipRate estimates how often recent plays are skipped, as skips over total
// listens across the fetched tracks.
func skipRate(tracks map[string]model.TrackMetadata) float64 {
	var skips, listens uint
	for _, t := range tracks {
		skips += t.SkipCount
		listens += t.ViewCount + t.SkipCount
	}
	if listens == 0 {
		return 0
	}
	return float64(skips) / float64(listens)
}
