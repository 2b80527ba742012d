package giveaway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/repositories"
)

const (
	DefaultScanInterval = 5 * time.Second
	scanTimeout         = 30 * time.Second
	maxParallelClosures = 4
)

// Scheduler closes giveaways whose deadline has elapsed. One goroutine
// ticks at a fixed interval, scans running giveaways, and dispatches
// closures; a failed closure is logged and skipped so the rest of the scan
// proceeds. Manual closes and the scheduler can race; Close's conditional
// status update decides which caller draws.
type Scheduler struct {
	manager  *Manager
	repo     repositories.GiveawayRepository
	interval time.Duration
	ticker   *time.Ticker
	shutdown chan struct{}
	done     chan struct{}
}

func NewScheduler(manager *Manager, repo repositories.GiveawayRepository, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Scheduler{
		manager:  manager,
		repo:     repo,
		interval: interval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.ticker = time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer s.ticker.Stop()
		for {
			select {
			case <-s.ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
				s.scan(ctx)
				cancel()
			case <-s.shutdown:
				return
			}
		}
	}()
	slog.Info("Deadline scheduler started",
		slog.Duration("interval", s.interval))
}

// Shutdown stops the tick loop and waits for an in-flight scan to finish.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	<-s.done
	slog.Info("Deadline scheduler stopped")
}

func (s *Scheduler) scan(ctx context.Context) {
	due, err := s.repo.ListDue(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("Deadline scan failed",
			slog.String("type", "error"),
			slog.Any("error", err))
		return
	}
	if len(due) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelClosures)
	for _, overdue := range due {
		id := overdue.ID
		g.Go(func() error {
			if _, err := s.manager.Close(ctx, id, "Ended"); err != nil {
				// ErrNotRunning means a manual close won the race; all
				// other failures are isolated to this giveaway.
				if !errors.Is(err, ErrNotRunning) {
					slog.Error("Failed to close giveaway",
						slog.Int64("giveaway_id", id),
						slog.Any("error", err))
				}
			}
			return nil
		})
	}
	g.Wait()
}
