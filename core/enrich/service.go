// Package enrich resolves genres and moods for artists and albums through a
// tiered cache backed by a provider fallback chain.
package enrich

import (
	"context"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/cache"
	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// Service resolves genre/mood data. Resolution order: embedded track tag,
// album-level cache, artist-level cache, provider A (Spotify), provider B
// (Last.fm), manual mapping. The first non-empty source wins and is written
// back to the cache.
//
// During playlist generation only the cache-only methods are used; providers
// are reserved for background maintenance so a rate-limit stall can never
// block a generation run.
type Service struct {
	repo      repository.GenreCacheRepository
	hot       *cache.GenreHotCache
	providers []Provider
	manual    *ManualTable
	usage     *UsageTracker
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates the enrichment service. Providers are consulted in
// slice order; disabled providers are skipped.
func NewService(
	repo repository.GenreCacheRepository,
	hot *cache.GenreHotCache,
	providers []Provider,
	manual *ManualTable,
	usage *UsageTracker,
	ttl time.Duration,
) *Service {
	return &Service{
		repo:      repo,
		hot:       hot,
		providers: providers,
		manual:    manual,
		usage:     usage,
		ttl:       ttl,
		now:       time.Now,
	}
}

// ResolveTrack resolves genres/moods for one track in cache-only mode,
// starting from the track's own embedded tags. Never fails; absence of data
// returns empty sets.
func (s *Service) ResolveTrack(ctx context.Context, track model.TrackMetadata) (genres, moods []string) {
	if len(track.Genres) > 0 || len(track.Moods) > 0 {
		g, m := classifyTags(append(append([]string{}, track.Genres...), track.Moods...))
		s.writeBack(ctx, track.Artist, "", g, m, model.SourceEmbedded)
		return g, m
	}
	return s.GetGenresAndMoodsCached(ctx, track.Artist, track.Album)
}

// GetGenresAndMoodsCached resolves genres/moods from the cache tiers and the
// manual table only; providers are never called. Never fails.
func (s *Service) GetGenresAndMoodsCached(ctx context.Context, artist, album string) (genres, moods []string) {
	artistKey := model.NormalizeCacheKey(artist)
	if artistKey == "" {
		return nil, nil
	}

	if album != "" {
		if entry := s.cachedEntry(ctx, artistKey, model.NormalizeCacheKey(album)); entry != nil {
			s.trackUsage(artistKey)
			return entry.Genres, entry.Moods
		}
	}

	if entry := s.cachedEntry(ctx, artistKey, ""); entry != nil {
		s.trackUsage(artistKey)
		return entry.Genres, entry.Moods
	}

	if s.manual != nil {
		if manualGenres := s.manual.Lookup(artist); len(manualGenres) > 0 {
			s.writeBack(ctx, artist, "", manualGenres, nil, model.SourceManual)
			return manualGenres, nil
		}
	}

	return nil, nil
}

// Refresh resolves genres/moods with providers allowed and rewrites the
// cache entry. Used only by background maintenance. Album may be empty for
// an artist-level refresh. Returns (nil, nil) when no source had data.
func (s *Service) Refresh(ctx context.Context, artist, album string) (*model.GenreCacheEntry, error) {
	artistKey := model.NormalizeCacheKey(artist)
	if artistKey == "" {
		return nil, nil
	}

	for _, provider := range s.providers {
		if !provider.Enabled() {
			continue
		}

		var result *ProviderResult
		var err error
		if album != "" {
			result, err = provider.SearchAlbum(ctx, artist, album)
		} else {
			result, err = provider.SearchArtist(ctx, artist)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Provider failure is recovered locally: log, fall through.
			logger.Warn("provider lookup failed",
				logger.String("provider", provider.Name()),
				logger.String("artist", artist),
				logger.ErrorField(err))
			continue
		}
		if result.Empty() {
			continue
		}

		source := model.SourceSpotify
		if provider.Name() == "lastfm" {
			source = model.SourceLastFM
		}
		entry := s.writeBack(ctx, artist, album, result.Genres, result.Moods, source)
		return entry, nil
	}

	if s.manual != nil {
		if manualGenres := s.manual.Lookup(artist); len(manualGenres) > 0 {
			entry := s.writeBack(ctx, artist, album, manualGenres, nil, model.SourceManual)
			return entry, nil
		}
	}

	return nil, nil
}

// Stats reports cache contents for observability tooling.
func (s *Service) Stats() (*model.CacheStats, error) {
	return s.repo.Stats(s.now())
}

// TrackUsage queues a best-effort last-used update for the artist.
func (s *Service) TrackUsage(artist string) {
	s.trackUsage(model.NormalizeCacheKey(artist))
}

// cachedEntry returns a fresh cache entry, consulting the Redis layer first
// and falling back to MySQL. Expired entries and read failures are misses.
func (s *Service) cachedEntry(ctx context.Context, artistKey, albumKey string) *model.GenreCacheEntry {
	now := s.now()

	if s.hot != nil {
		entry, err := s.hot.Get(ctx, artistKey, albumKey)
		if err != nil {
			logger.Debug("hot cache read failed", logger.ErrorField(err))
		} else if entry != nil && !entry.Expired(now) {
			return entry
		}
	}

	entry, err := s.repo.Get(artistKey, albumKey)
	if err != nil {
		logger.Warn("genre cache read failed, treating as miss", logger.ErrorField(err))
		return nil
	}
	if entry == nil || entry.Expired(now) {
		return nil
	}

	if s.hot != nil {
		if err := s.hot.Set(ctx, entry); err != nil {
			logger.Debug("hot cache write failed", logger.ErrorField(err))
		}
	}
	return entry
}

// writeBack upserts a cache entry for the winning source and mirrors it into
// the hot cache. Failures are logged and swallowed: a cache write must never
// fail a lookup.
func (s *Service) writeBack(ctx context.Context, artist, album string, genres, moods []string, source model.GenreSource) *model.GenreCacheEntry {
	now := s.now()
	usedAt := now
	entry := &model.GenreCacheEntry{
		ArtistKey:  model.NormalizeCacheKey(artist),
		AlbumKey:   model.NormalizeCacheKey(album),
		Genres:     model.StringList(genres),
		Moods:      model.StringList(moods),
		Source:     source,
		CachedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
		LastUsedAt: &usedAt,
	}

	if err := s.repo.Upsert(entry); err != nil {
		logger.Warn("genre cache write failed", logger.ErrorField(err))
	}
	if s.hot != nil {
		if err := s.hot.Set(ctx, entry); err != nil {
			logger.Debug("hot cache write failed", logger.ErrorField(err))
		}
	}
	return entry
}

func (s *Service) trackUsage(artistKey string) {
	if s.usage == nil || artistKey == "" {
		return
	}
	s.usage.Track(artistKey)
}
