package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	defaultInterval = 15 * time.Minute
	cycleTimeout    = 2 * time.Minute
)

// Scheduler periodically refreshes every tracked device.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *Service
	interval  time.Duration
	log       *slog.Logger
}

// NewScheduler creates a Scheduler. A non-positive interval selects 15 minutes.
func NewScheduler(service *Service, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		log = slog.Default()
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// The first cycle runs immediately.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.runCycle); err != nil {
		return fmt.Errorf("scheduling refresh job: %w", err)
	}

	s.scheduler.StartAsync()
	s.log.Info("refresh scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	start := time.Now()
	published := s.service.RefreshAll(ctx)
	s.log.Info("refresh cycle completed",
		"devices", len(s.service.Tracker().Devices()),
		"published", published,
		"duration", time.Since(start),
	)
}
