package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weatherpulse/internal/weather"
)

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, q weather.Query) (weather.Dashboard, error)
}

// Scheduler periodically refreshes the dashboards of pinned cities so that
// requests for them are served from the store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	queries   []weather.Query
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(queries []weather.Query, interval time.Duration, service Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	// A refresh cycle that outlasts the interval delays the next one
	// instead of overlapping it.
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Scheduler{
		scheduler: cron,
		service:   service,
		queries:   queries,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.queries) == 0 {
		s.logger.Info("Scheduler has no pinned cities; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("Scheduler started",
		zap.Duration("interval", interval),
		zap.Int("cities", len(s.queries)))
	return nil
}

// RunOnce refreshes every pinned query concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	start := time.Now()
	s.logger.Info("Running scheduled refresh", zap.Int("cities", len(s.queries)))

	var wg sync.WaitGroup
	for _, q := range s.queries {
		q := q
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if _, err := s.service.Refresh(ctx, q); err != nil {
				s.logger.Error("Scheduled refresh failed",
					zap.String("query", q.String()),
					zap.Error(err))
			}
		}()
	}
	wg.Wait()

	s.logger.Info("Scheduled refresh completed", zap.Duration("duration", time.Since(start)))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
