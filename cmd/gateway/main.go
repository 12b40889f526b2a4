package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papersum/internal/app"
	"papersum/internal/httputil"
)

// Synchronous summaries of long papers take several provider calls.
const requestTimeout = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			deps.Log.Error("graceful shutdown failed", "err", err)
		}
	}()

	if err := httputil.ListenAndServe(srv, deps.Log, "gateway"); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log, requestTimeout)

	r.Post("/api/papers/upload", uploadHandler(deps))
	r.Post("/api/papers/arxiv", arxivHandler(deps))
	r.Post("/api/papers/{id}/summarize", summarizeHandler(deps))
	r.Get("/api/papers/{id}/summary", summaryHandler(deps))
	r.Get("/api/papers/{id}/summary.md", summaryMarkdownHandler(deps))
	r.Get("/api/providers", providersHandler(deps))

	r.Get("/api/translate/demo/sections", translateSectionsHandler(deps))
	r.Post("/api/translate/demo/sections/{id}", translateSectionHandler(deps))

	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	return r
}

// readBody decodes an optional JSON body; an empty body leaves dst untouched.
func readBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := httputil.DecodeJSON(r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
