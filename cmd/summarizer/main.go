package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"papersum/internal/app"
	"papersum/internal/httputil"
	"papersum/internal/llm"
	"papersum/internal/queue"
	"papersum/internal/retention"
	"papersum/internal/store"
	"papersum/internal/summary"
)

func main() {
	if err := run(); err != nil {
		slog.Default().Error("summarizer worker failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}
	defer deps.Close()

	if deps.Queue == nil {
		return errors.New("summarizer worker requires a queue (QUEUE_PROVIDER=nats)")
	}
	deps.Log.Info("summarizer worker starting")

	if deps.Config.PruneEnabled {
		sched := retention.New(ctx, deps.Store, deps.Config.PruneSchedule, deps.Config.SummaryRetention, deps.Metrics, deps.Log)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("invalid PRUNE_SCHEDULE %q: %w", deps.Config.PruneSchedule, err)
		}
		defer sched.Stop()
	} else {
		deps.Log.Info("retention disabled on this replica")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, func(ctx context.Context, task queue.Task) error {
			return handleSummarize(ctx, deps, task)
		})
	})

	health := httputil.HealthServer(deps.Config.HealthPort, deps.Log, map[string]http.Handler{
		"/metrics": deps.Metrics.Handler(),
	})
	g.Go(func() error {
		return httputil.ListenAndServe(health, deps.Log, "health")
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("summarizer worker stopped", "err", err)
	}
	return nil
}

// handleSummarize runs one summarize task. Failures that cannot succeed on
// redelivery are wrapped with queue.Permanent and mark the paper failed.
func handleSummarize(ctx context.Context, deps app.Deps, task queue.Task) error {
	payload, err := queue.DecodeSummarize(task)
	if err != nil {
		deps.Metrics.ObserveTask(string(task.Type), "failed")
		return queue.Permanent(err)
	}
	log := deps.Log.With("paper_id", payload.PaperID, "task_id", task.ID, "attempt", task.Attempts+1)

	p, err := deps.Store.GetPaper(ctx, payload.PaperID)
	if err != nil {
		if errors.Is(err, store.ErrPaperNotFound) {
			log.Warn("paper vanished before summarization")
			deps.Metrics.ObserveTask(string(task.Type), "failed")
			return queue.Permanent(err)
		}
		return storeFailure(ctx, deps, log, task, payload.PaperID, err)
	}

	res, err := deps.Summarizer.Summarize(ctx, summary.Request{Provider: payload.Provider, Text: p.Content})
	if err != nil {
		kind := summary.Classify(err)
		message := kind.Message()
		permanent := !kind.Retryable() || task.LastAttempt()
		if errors.Is(err, llm.ErrProviderUnavailable) {
			message, permanent = err.Error(), true
		}
		if !permanent {
			log.Warn("summarization failed; will retry", "err", err, "kind", kind.String())
			deps.Metrics.ObserveTask(string(task.Type), "retry")
			return err
		}
		markFailed(ctx, deps, log, p.ID, message)
		deps.Metrics.ObserveTask(string(task.Type), "failed")
		return queue.Permanent(err)
	}

	if err := deps.Store.SaveSummary(ctx, store.Summary{
		PaperID:   p.ID,
		Text:      res.Text,
		Provider:  res.Provider,
		Model:     res.Model,
		Chunks:    res.Chunks,
		Formatted: res.Formatted,
	}); err != nil {
		return storeFailure(ctx, deps, log, task, p.ID, err)
	}
	if err := deps.Store.UpdatePaperStatus(ctx, p.ID, store.StatusReady, ""); err != nil {
		return storeFailure(ctx, deps, log, task, p.ID, err)
	}

	deps.Metrics.ObserveTask(string(task.Type), "ready")
	log.Info("paper summarized", "provider", res.Provider, "chunks", res.Chunks, "calls", res.Calls, "cached", res.Cached)
	return nil
}

// storeFailure retries store errors until the task's last attempt, then gives
// up and records a generic failure so the paper does not stay processing.
func storeFailure(ctx context.Context, deps app.Deps, log *slog.Logger, task queue.Task, id uuid.UUID, err error) error {
	if !task.LastAttempt() {
		log.Warn("store error; will retry", "err", err)
		deps.Metrics.ObserveTask(string(task.Type), "retry")
		return err
	}
	log.Error("store error on last attempt", "err", err)
	markFailed(ctx, deps, log, id, summary.GenericFailure.Message())
	deps.Metrics.ObserveTask(string(task.Type), "failed")
	return queue.Permanent(err)
}

func markFailed(ctx context.Context, deps app.Deps, log *slog.Logger, id uuid.UUID, message string) {
	if err := deps.Store.UpdatePaperStatus(ctx, id, store.StatusFailed, message); err != nil {
		log.Error("failed to mark paper failed", "err", err)
	}
}
