package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/http/pprofserver"
	"service-dispatch/internal/jobs"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/transport/kafka"
	"service-dispatch/internal/transport/kafkapub"
	"service-dispatch/internal/transport/mqtt"
	"service-dispatch/internal/transport/rabbitmq"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the API server process.
type Runner struct {
	runFn func(*dig.Container) error
	exit  func(int)
}

// NewRunner returns a Runner backed by the container's components.
func NewRunner() *Runner {
	return &Runner{runFn: run, exit: os.Exit}
}

// MustRun blocks until shutdown. Errors other than cancellation terminate the process.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}
	logger := loggerFrom(container)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		_ = logger.Sync()
		r.exit(1)
	}
}

func loggerFrom(container *dig.Container) logx.Logger {
	var logger logx.Logger
	if err := container.Invoke(func(l logx.Logger) { logger = l }); err != nil || logger == nil {
		return logx.NewJSON(os.Stderr, "info")
	}
	return logger
}

func run(container *dig.Container) error {
	return container.Invoke(appRun)
}

type serverIn struct {
	dig.In

	Ctx    context.Context
	Logger logx.Logger
	Server *http.Server

	Pool       *pgxpool.Pool       `optional:"true"`
	Jobs       *jobs.Runner        `optional:"true"`
	Consumer   *kafka.Consumer     `optional:"true"`
	Subscriber *mqtt.Subscriber    `optional:"true"`
	Pprof      *pprofserver.Server `optional:"true"`
	Mirror     *rabbitmq.Mirror    `optional:"true"`
	Publisher  *kafkapub.Publisher `optional:"true"`
}

func appRun(in serverIn) error {
	defer closeResources(in)

	if err := in.Subscriber.Start(in.Ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	g, ctx := errgroup.WithContext(in.Ctx)
	g.Go(func() error { return serve(ctx, in.Server, in.Logger) })
	if in.Consumer != nil {
		g.Go(func() error { return in.Consumer.Run(ctx) })
	}
	if in.Jobs != nil {
		g.Go(func() error { return in.Jobs.Run(ctx) })
	}
	if in.Pprof != nil {
		g.Go(func() error { return in.Pprof.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return in.Ctx.Err()
}

func serve(ctx context.Context, srv *http.Server, logger logx.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("service-dispatch listening", logx.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down service-dispatch")
		gracefulShutdown(srv, logger, shutdownTimeout)
		return nil
	}
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.Err(err))
	}
}

func closeResources(in serverIn) {
	in.Subscriber.Stop()
	if in.Consumer != nil {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Error("kafka close error", logx.Err(err))
		}
	}
	if err := in.Publisher.Close(); err != nil {
		in.Logger.Error("kafka publisher close error", logx.Err(err))
	}
	if err := in.Mirror.Close(); err != nil {
		in.Logger.Error("rabbitmq close error", logx.Err(err))
	}
	if in.Pool != nil {
		in.Pool.Close()
	}
}
