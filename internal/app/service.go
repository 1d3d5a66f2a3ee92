package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sela-fruits/sela-store/internal/logger"
)

const defaultStopTimeout = 15 * time.Second

// Service is a long running part of the process: the HTTP API or the queue worker.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner starts every service and stops all of them once one exits or ctx ends.
type Runner struct {
	services    []Service
	StopTimeout time.Duration
}

func NewRunner(services ...Service) *Runner {
	return &Runner{services: services, StopTimeout: defaultStopTimeout}
}

// Run blocks until ctx is done or a service returns. A signal-driven shutdown
// returns nil; otherwise the service error is joined with any stop failures.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := make(chan error, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			logger.Infow("service_start", "service", svc.Name())
			err := svc.Start(ctx)
			logger.Infow("service_exit", "service", svc.Name(), "error", err)
			exited <- err
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-exited:
	}
	cancel()
	return errors.Join(runErr, r.stopAll())
}

func (r *Runner) stopAll() error {
	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, svc := range r.services {
		if err := svc.Stop(stopCtx); err != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
		}
	}
	return errors.Join(errs...)
}
