// Package retention periodically deletes old papers and their summaries.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"papersum/internal/metrics"
)

const pruneTimeout = 5 * time.Minute

// Pruner is the slice of store.Store the job needs.
type Pruner interface {
	PrunePapers(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	spec      string
	retention time.Duration
	store     Pruner
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

func New(ctx context.Context, st Pruner, spec string, retention time.Duration, m *metrics.Metrics, log *slog.Logger) *Scheduler {
	return &Scheduler{
		ctx:       ctx,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		spec:      spec,
		retention: retention,
		store:     st,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Start registers the prune job; a non-positive retention disables it.
func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		s.log.Info("retention disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.prune); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("retention scheduled", "spec", s.spec, "retention", s.retention.String())
	return nil
}

// Stop halts the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce deletes papers older than the retention window.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.store.PrunePapers(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.Pruned(n)
	return n, nil
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneTimeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.InfoContext(ctx, "scheduler context is done", "err", ctx.Err())
		return
	}

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to prune papers", "err", err)
		return
	}
	s.log.InfoContext(ctx, "pruned expired papers", "count", n)
}
