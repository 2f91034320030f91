package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

const defaultInterval = 24 * time.Hour

// ServiceParams configure the schedule service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Guard    Guard
	Interval time.Duration
}

// Service executes registered jobs on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	guard    Guard
	interval time.Duration
}

// NewService builds a schedule service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	guard := params.Guard
	if guard == nil {
		guard = NewRunGuard()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		guard:    guard,
		interval: interval,
	}, nil
}

// Run starts the cycle loop until the context is canceled. The first cycle
// runs immediately, then one per interval.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled cycle failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "schedule service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled cycle failed", err)
			}
		}
	}
}

// RunOnce executes a single cycle and returns.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

func (s *Service) runCycle(ctx context.Context) error {
	acquired, err := s.guard.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("guard acquire: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "another cycle is running; skipping this one")
		return nil
	}
	defer func() {
		if relErr := s.guard.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cycle guard", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled cycle starting")
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled cycle complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "schedule.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}
