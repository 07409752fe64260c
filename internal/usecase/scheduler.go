package usecase

import (
	"context"
	"log/slog"
	"time"

	"EthNews/internal/domain"
	"EthNews/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	sources  []domain.Source
	log      *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingest cycles.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, sources []domain.Source, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, sources: sources, log: log.With("component", "scheduler")}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, s.tick)
}

func (s *Scheduler) tick(ctx context.Context, trigger time.Time) {
	_, err := s.pipeline.Ingest(ctx, s.sources)
	switch {
	case IsSkip(err):
		s.log.Info("tick skipped, ingest already running", "trigger", trigger)
	case err != nil:
		s.log.Error("scheduled ingest failed", "trigger", trigger, "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
