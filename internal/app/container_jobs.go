package app

import (
	"context"

	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/jobs"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/service/tracking"
)

// Offers live in the server's memory, so the sweeper has to run there.
func registerServerJobs(container *dig.Container) error {
	return provideAll(container, newServerJobs)
}

func registerWorkerJobs(container *dig.Container) error {
	return provideAll(container, newWorkerJobs)
}

func newServerJobs(cfg *config.Config, logger logx.Logger, m *matching.Service) *jobs.Runner {
	return jobs.NewRunner(logger, offerSweeper(cfg, m))
}

func newWorkerJobs(cfg *config.Config, logger logx.Logger, t *tracking.Service) *jobs.Runner {
	return jobs.NewRunner(logger, historyRetention(cfg, t))
}

func offerSweeper(cfg *config.Config, m *matching.Service) jobs.Job {
	return jobs.Job{
		Name:     "offer_sweeper",
		Interval: cfg.Matching.SweepInterval,
		Run: func(ctx context.Context) error {
			m.SweepExpired(ctx)
			return nil
		},
	}
}

func historyRetention(cfg *config.Config, t *tracking.Service) jobs.Job {
	return jobs.Job{
		Name:     "history_retention",
		Interval: cfg.Tracking.CleanupInterval,
		Run: func(ctx context.Context) error {
			_, err := t.CleanupOldHistory(ctx)
			return err
		},
	}
}
