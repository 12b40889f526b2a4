package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"papersum/internal/app"
	"papersum/internal/arxiv"
	"papersum/internal/chunker"
	"papersum/internal/httputil"
	"papersum/internal/markdown"
	"papersum/internal/paper"
	"papersum/internal/queue"
	"papersum/internal/store"
	"papersum/internal/summary"
)

type arxivRequest struct {
	ArxivID string `json:"arxiv_id" validate:"required,max=200"`
}

type summarizeRequest struct {
	Provider string `json:"provider" validate:"omitempty,max=32"`
	Async    bool   `json:"async"`
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		// Multipart framing adds a little on top of the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		f, err := paper.Extract(header.Filename, header.Header.Get("Content-Type"), content)
		switch {
		case errors.Is(err, paper.ErrUnsupportedType):
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		case errors.Is(err, paper.ErrPDFExtraction), errors.Is(err, paper.ErrEmptyContent):
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusUnprocessableEntity)
			return
		case err != nil:
			httputil.Fail(deps.Log, w, "failed to extract text", err, http.StatusInternalServerError)
			return
		}

		p, err := deps.Store.CreatePaper(r.Context(), store.Paper{
			Source:   store.SourceUpload,
			Title:    f.Name,
			FileName: f.BaseName,
			Content:  f.Text,
		})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist paper", err, http.StatusInternalServerError)
			return
		}

		deps.Log.Info("paper uploaded", "paper_id", p.ID, "file", f.Name, "type", f.ContentType)
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"paper_id":  p.ID.String(),
			"file_name": f.Name,
			"chars":     chunker.Len(f.Text),
			"status":    p.Status,
		})
	}
}

func arxivHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req arxivRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := deps.Validator.Struct(req); err != nil {
			httputil.FailValidation(w, err)
			return
		}

		id, err := arxiv.NormalizeID(req.ArxivID)
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid arXiv ID", err, http.StatusBadRequest)
			return
		}
		log := deps.Log.With("arxiv_id", id)

		content, err := deps.Arxiv.FetchContent(ctx, id)
		if err != nil {
			httputil.Fail(log, w, "failed to fetch paper from arXiv", err, http.StatusBadGateway)
			return
		}

		meta, err := deps.Arxiv.FetchMetadata(ctx, id)
		if err != nil {
			log.Warn("arXiv metadata unavailable", "err", err)
			meta = arxiv.Metadata{ID: id}
		}
		title := meta.Title
		if title == "" {
			title = id
		}

		p, err := deps.Store.CreatePaper(ctx, store.Paper{
			Source:   store.SourceArxiv,
			ArxivID:  id,
			Title:    title,
			Authors:  meta.Authors,
			FileName: strings.ReplaceAll(id, "/", "_") + "_summary",
			Content:  content,
		})
		if err != nil {
			httputil.Fail(log, w, "failed to persist paper", err, http.StatusInternalServerError)
			return
		}

		log.Info("arXiv paper imported", "paper_id", p.ID)
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"paper_id": p.ID.String(),
			"arxiv_id": id,
			"title":    title,
			"authors":  meta.Authors,
			"chars":    chunker.Len(content),
		})
	}
}

func summarizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		paperID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid paper id", err, http.StatusBadRequest)
			return
		}
		var req summarizeRequest
		if err := readBody(r, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := deps.Validator.Struct(req); err != nil {
			httputil.FailValidation(w, err)
			return
		}
		if _, err := deps.Summarizer.Providers().Get(req.Provider); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		p, err := deps.Store.GetPaper(ctx, paperID)
		if err != nil {
			if errors.Is(err, store.ErrPaperNotFound) {
				httputil.Fail(deps.Log, w, "paper not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load paper", err, http.StatusInternalServerError)
			return
		}
		log := deps.Log.With("paper_id", p.ID)

		if req.Async {
			enqueueSummary(ctx, deps, log, w, p.ID, req.Provider)
			return
		}

		res, err := deps.Summarizer.Summarize(ctx, summary.Request{Provider: req.Provider, Text: p.Content})
		if err != nil {
			kind := summary.Classify(err)
			markStatus(ctx, deps, log, p.ID, store.StatusFailed, kind.Message())
			httputil.Fail(log, w, kind.Message(), err, kind.HTTPStatus())
			return
		}

		if err := deps.Store.SaveSummary(ctx, store.Summary{
			PaperID:   p.ID,
			Text:      res.Text,
			Provider:  res.Provider,
			Model:     res.Model,
			Chunks:    res.Chunks,
			Formatted: res.Formatted,
		}); err != nil {
			httputil.Fail(log, w, "failed to persist summary", err, http.StatusInternalServerError)
			return
		}
		markStatus(ctx, deps, log, p.ID, store.StatusReady, "")

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"paper_id":  p.ID.String(),
			"summary":   res.Text,
			"provider":  res.Provider,
			"model":     res.Model,
			"chunks":    res.Chunks,
			"calls":     res.Calls,
			"formatted": res.Formatted,
			"cached":    res.Cached,
		})
	}
}

func enqueueSummary(ctx context.Context, deps app.Deps, log *slog.Logger, w http.ResponseWriter, paperID uuid.UUID, provider string) {
	if deps.Queue == nil {
		httputil.Fail(log, w, "async summarization is not enabled", nil, http.StatusServiceUnavailable)
		return
	}
	task, err := queue.NewSummarizeTask(paperID, provider)
	if err != nil {
		httputil.Fail(log, w, "failed to build task", err, http.StatusInternalServerError)
		return
	}
	markStatus(ctx, deps, log, paperID, store.StatusProcessing, "")
	if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
		markStatus(ctx, deps, log, paperID, store.StatusFailed, "failed to enqueue summarization")
		httputil.Fail(log, w, "failed to enqueue summarization; please retry", err, http.StatusServiceUnavailable)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
		"paper_id": paperID.String(),
		"status":   store.StatusProcessing,
	})
}

func markStatus(ctx context.Context, deps app.Deps, log *slog.Logger, id uuid.UUID, status store.PaperStatus, lastError string) {
	if err := deps.Store.UpdatePaperStatus(ctx, id, status, lastError); err != nil {
		log.Error("failed to update paper status", "status", status, "err", err)
	}
}

// loadSummary resolves the paper and its summary, writing the error response itself.
func loadSummary(deps app.Deps, w http.ResponseWriter, r *http.Request) (store.Paper, store.Summary, bool) {
	ctx := r.Context()
	paperID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid paper id", err, http.StatusBadRequest)
		return store.Paper{}, store.Summary{}, false
	}
	p, err := deps.Store.GetPaper(ctx, paperID)
	if err != nil {
		if errors.Is(err, store.ErrPaperNotFound) {
			httputil.Fail(deps.Log, w, "paper not found", err, http.StatusNotFound)
		} else {
			httputil.Fail(deps.Log, w, "failed to load paper", err, http.StatusInternalServerError)
		}
		return store.Paper{}, store.Summary{}, false
	}
	sum, err := deps.Store.GetSummary(ctx, paperID)
	if err != nil {
		switch {
		case !errors.Is(err, store.ErrSummaryNotFound):
			httputil.Fail(deps.Log, w, "failed to load summary", err, http.StatusInternalServerError)
		case p.Status == store.StatusFailed:
			httputil.Fail(deps.Log, w, p.LastError, err, http.StatusConflict)
		default:
			httputil.Fail(deps.Log, w, fmt.Sprintf("summary not ready (status: %s)", p.Status), err, http.StatusNotFound)
		}
		return store.Paper{}, store.Summary{}, false
	}
	return p, sum, true
}

func summaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, sum, ok := loadSummary(deps, w, r)
		if !ok {
			return
		}
		out := map[string]any{
			"paper_id":   p.ID.String(),
			"title":      p.Title,
			"arxiv_id":   p.ArxivID,
			"status":     p.Status,
			"summary":    sum.Text,
			"provider":   sum.Provider,
			"model":      sum.Model,
			"chunks":     sum.Chunks,
			"formatted":  sum.Formatted,
			"created_at": sum.CreatedAt,
			"stale":      p.Status != store.StatusReady,
		}
		// A failed re-summarize keeps the previous summary.
		if p.Status == store.StatusFailed {
			out["last_error"] = p.LastError
		}
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func summaryMarkdownHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, sum, ok := loadSummary(deps, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", markdown.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": markdown.FileName(p.FileName)}))
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, sum.Text); err != nil {
			deps.Log.Warn("summary download interrupted", "paper_id", p.ID, "err", err)
		}
	}
}

func providersHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg := deps.Summarizer.Providers()
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"default":   reg.Default(),
			"available": reg.Names(),
		})
	}
}
