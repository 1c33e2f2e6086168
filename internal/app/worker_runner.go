package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch/internal/jobs"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/transport/rabbitmq"
)

// WorkerRunner runs the maintenance jobs
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun runs the worker until its context is cancelled and panics on any other error.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(func(in workerIn) error {
		return workerRun(in.Ctx, in.Pool, in.Logger, in.Jobs, in.Mirror)
	})
}

type workerIn struct {
	dig.In

	Ctx    context.Context
	Logger logx.Logger
	Jobs   *jobs.Runner

	Pool   *pgxpool.Pool    `optional:"true"`
	Mirror *rabbitmq.Mirror `optional:"true"`
}

func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	runner *jobs.Runner,
	mirror *rabbitmq.Mirror,
) error {
	if runner == nil || runner.Len() == 0 {
		return errors.New("no jobs scheduled: worker container misconfigured")
	}
	defer closeWorker(pool, logger, mirror)

	logger.Info("service-dispatch-worker started", logx.Int("jobs", runner.Len()))
	if err := runner.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, mirror *rabbitmq.Mirror) {
	if err := mirror.Close(); err != nil {
		logger.Error("rabbitmq close error", logx.Err(err))
	}
	if pool != nil {
		pool.Close()
	}
}
