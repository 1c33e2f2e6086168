// Package jobs runs periodic maintenance tasks.
package jobs

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/logx"
)

// Job is a task run every Interval. A failed run is logged and retried on the next tick.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner drives a set of jobs.
type Runner struct {
	jobs   []Job
	logger logx.Logger
}

// NewRunner returns a Runner. Jobs with a non-positive interval are skipped.
func NewRunner(logger logx.Logger, jobs ...Job) *Runner {
	active := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Interval > 0 && j.Run != nil {
			active = append(active, j)
		} else {
			logger.Warn("job disabled", logx.String("job", j.Name))
		}
	}
	return &Runner{jobs: active, logger: logger}
}

// Len reports the number of scheduled jobs.
func (r *Runner) Len() int { return len(r.jobs) }

// Run blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range r.jobs {
		g.Go(func() error {
			r.loop(ctx, j)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, j Job) {
	log := r.logger.With(logx.String("job", j.Name))
	log.Info("job started", logx.Duration("interval", j.Interval))

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("job stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := j.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("job run failed", logx.Err(err))
				continue
			}
			log.Debug("job run", logx.Duration("took", time.Since(start)))
		}
	}
}
