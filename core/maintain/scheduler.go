package maintain

import (
	"context"
	"sync"
	"time"

	"github.com/mdabushayem62/plex-playlists-sub003/logger"
)

// Scheduler runs a maintenance task on a fixed interval until stopped.
type Scheduler struct {
	interval time.Duration
	task     func(ctx context.Context)

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler for the given task.
func NewScheduler(interval time.Duration, task func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		stopChan: make(chan struct{}),
	}
}

// Start launches the maintenance loop. The task runs once immediately, then
// on every interval tick.
func (s *Scheduler) Start() {
	logger.Info("cache maintenance scheduler started",
		logger.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for an in-flight round to observe the
// cancellation.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	logger.Info("cache maintenance scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stopChan
		cancel()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.task(ctx)
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.task(ctx)
		}
	}
}
