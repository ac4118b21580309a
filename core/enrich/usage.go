package enrich

import (
	"sync"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
	"github.com/mdabushayem62/plex-playlists-sub003/repository"
)

// UsageTracker records last-used timestamps for cache entries off the hot
// path. Best effort by contract: updates may be dropped when the queue is
// full and failures are swallowed, never surfaced to the caller.
type UsageTracker struct {
	repo repository.GenreCacheRepository
	jobs chan string
	wg   sync.WaitGroup
	once sync.Once
}

// NewUsageTracker creates a tracker with the given queue size.
func NewUsageTracker(repo repository.GenreCacheRepository, queueSize int) *UsageTracker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &UsageTracker{repo: repo, jobs: make(chan string, queueSize)}
}

// Start launches the worker goroutines.
func (t *UsageTracker) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for artistKey := range t.jobs {
				if err := t.repo.TouchLastUsed(artistKey, time.Now()); err != nil {
					logger.Debug("usage update dropped", logger.String("artist", artistKey), logger.ErrorField(err))
				}
			}
		}()
	}
}

// Stop drains the queue and waits for workers to finish.
func (t *UsageTracker) Stop() {
	t.once.Do(func() {
		close(t.jobs)
	})
	t.wg.Wait()
}

// Track queues a usage update without blocking. Drops the update when the
// queue is full.
func (t *UsageTracker) Track(artistKey string) {
	select {
	case t.jobs <- artistKey:
	default:
		logger.Debug("usage queue full, dropping update", logger.String("artist", artistKey))
	}
}
