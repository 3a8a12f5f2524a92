package cron

import (
	"context"
	"log/slog"
	"time"

	"funfeed/internal/model"
)

// Scheduler fires the nightly composite job on a fixed interval. External
// callers remain responsible for any retry; a failed tick is only logged and
// the next tick runs as scheduled.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration
	log      *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(orch *Orchestrator, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{orch: orch, interval: interval, log: log}
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			outcome := s.orch.Run(ctx, NightlyJob, model.TriggerCron, "")
			if !outcome.OK {
				s.log.Error("scheduled nightly run failed", "error", outcome.Error)
			} else {
				s.log.Info("scheduled nightly run finished", "details", outcome.Details)
			}
		}
	}
}
