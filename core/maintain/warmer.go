// Package maintain keeps the genre cache warm: background refresh of
// expiring entries, first-time warming of artists seen in history, and purge
// of long-expired rows. This is the only path allowed to call providers.
package maintain

import (
	"context"
	"sync"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// refreshHorizon selects entries expiring within this window as refresh
// candidates.
const refreshHorizon = 7 * 24 * time.Hour

// defaultRefreshLimit bounds one maintenance round so a huge backlog can't
// hold the providers for hours.
const defaultRefreshLimit = 200

// Refresher resolves one artist or album through the provider chain and
// rewrites its cache entry.
type Refresher interface {
	Refresh(ctx context.Context, artist, album string) (*model.GenreCacheEntry, error)
}

// unit is one artist or album lookup.
type unit struct {
	artist string
	album  string
}

// Report summarizes one maintenance round.
type Report struct {
	Attempted int
	Refreshed int
	Failed    int
	Skipped   int
	Purged    int64
}

// Warmer runs cache maintenance under a bounded worker pool.
type Warmer struct {
	refresher   Refresher
	repo        repository.GenreCacheRepository
	concurrency int
	now         func() time.Time
}

// NewWarmer creates a cache warmer. Concurrency below 1 is raised to 1.
func NewWarmer(refresher Refresher, repo repository.GenreCacheRepository, concurrency int) *Warmer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Warmer{
		refresher:   refresher,
		repo:        repo,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// RefreshExpiring re-resolves cache entries nearing expiry, most recently
// used first, and purges rows already past their TTL.
func (w *Warmer) RefreshExpiring(ctx context.Context) (*Report, error) {
	now := w.now()

	entries, err := w.repo.RefreshCandidates(now.Add(refreshHorizon), defaultRefreshLimit)
	if err != nil {
		return nil, err
	}

	units := make([]unit, 0, len(entries))
	for _, entry := range entries {
		units = append(units, unit{artist: entry.ArtistKey, album: entry.AlbumKey})
	}
	report := w.run(ctx, units)

	purged, err := w.repo.PurgeExpired(now)
	if err != nil {
		logger.Warn("expired cache purge failed", logger.ErrorField(err))
	} else {
		report.Purged = purged
	}

	logger.Info("cache refresh round complete",
		logger.Int("attempted", report.Attempted),
		logger.Int("refreshed", report.Refreshed),
		logger.Int("failed", report.Failed),
		logger.Int64("purged", report.Purged))
	return report, nil
}

// WarmTracks resolves genre data for every artist and album in the given
// tracks that has no fresh cache entry yet. Fresh entries are skipped so a
// warm round doesn't burn provider quota re-fetching known data.
func (w *Warmer) WarmTracks(ctx context.Context, tracks []model.TrackMetadata) (*Report, error) {
	now := w.now()

	seen := make(map[string]struct{})
	var units []unit
	add := func(artist, album string) {
		artistKey := model.NormalizeCacheKey(artist)
		if artistKey == "" {
			return
		}
		albumKey := model.NormalizeCacheKey(album)
		key := artistKey + "|" + albumKey
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		units = append(units, unit{artist: artist, album: album})
	}
	for _, track := range tracks {
		add(track.Artist, "")
		add(track.Artist, track.Album)
	}

	pending := make([]unit, 0, len(units))
	skipped := 0
	for _, u := range units {
		entry, err := w.repo.Get(model.NormalizeCacheKey(u.artist), model.NormalizeCacheKey(u.album))
		if err == nil && entry != nil && !entry.Expired(now) {
			skipped++
			continue
		}
		pending = append(pending, u)
	}

	report := w.run(ctx, pending)
	report.Skipped = skipped

	logger.Info("cache warm round complete",
		logger.Int("attempted", report.Attempted),
		logger.Int("refreshed", report.Refreshed),
		logger.Int("failed", report.Failed),
		logger.Int("skipped", report.Skipped))
	return report, nil
}

// run executes units under the worker pool. Cancellation is honored between
// units; an in-flight lookup finishes but no further unit starts.
func (w *Warmer) run(ctx context.Context, units []unit) *Report {
	report := &Report{}
	if len(units) == 0 {
		return report
	}

	jobs := make(chan unit)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				if ctx.Err() != nil {
					return
				}
				entry, err := w.refresher.Refresh(ctx, u.artist, u.album)

				mu.Lock()
				report.Attempted++
				switch {
				case err != nil:
					report.Failed++
				case entry != nil:
					report.Refreshed++
				}
				mu.Unlock()

				if err != nil {
					logger.Debug("cache refresh unit failed",
						logger.String("artist", u.artist),
						logger.String("album", u.album),
						logger.ErrorField(err))
				}
			}
		}()
	}

feed:
	for _, u := range units {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- u:
		}
	}
	close(jobs)
	wg.Wait()
	return report
}
