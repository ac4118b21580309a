// Package patterns manages the single cached row of learned listening
// patterns and the analyzer that derives it from play history.
package patterns

import (
	"context"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/model"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// Analyzer produces a fresh UserPatterns row from play history.
type Analyzer interface {
	Analyze(ctx context.Context) (*model.UserPatterns, error)
}

// Store caches the learned-patterns row with a freshness window and a
// stale-fallback policy.
type Store struct {
	repo repository.PatternsRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a pattern store with the given TTL.
func NewStore(repo repository.PatternsRepository, ttl time.Duration) *Store {
	return &Store{repo: repo, ttl: ttl, now: time.Now}
}

// GetWithCache returns the cached patterns when fresh, re-analyzes when stale
// (or when forceRefresh is set), and falls back to the stale row when the
// analyzer fails. Returns nil when nothing is available. Never returns an
// error: pattern loading is best-effort and failures only disable the
// pattern-aware scoring boost.
func (s *Store) GetWithCache(ctx context.Context, forceRefresh bool, analyzer Analyzer) *model.UserPatterns {
	cached, err := s.repo.Get()
	if err != nil {
		logger.Warn("failed to read cached patterns, treating as miss", logger.ErrorField(err))
		cached = nil
	}

	now := s.now()
	if cached != nil && !forceRefresh && !cached.Expired(now) {
		return cached
	}

	if analyzer == nil {
		// Stale (or missing) with no way to refresh: serve what we have.
		return cached
	}

	fresh, err := analyzer.Analyze(ctx)
	if err != nil || fresh == nil {
		if err != nil {
			logger.Warn("pattern analysis failed, serving stale patterns", logger.ErrorField(err))
		}
		return cached
	}

	fresh.CreatedAt = now
	fresh.ExpiresAt = now.Add(s.ttl)
	if err := s.repo.Save(fresh); err != nil {
		logger.Warn("failed to save refreshed patterns", logger.ErrorField(err))
		// The analysis itself succeeded; serve it even if the write failed.
	}
	return fresh
}
