package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"papersum/internal/app"
	"papersum/internal/httputil"
	"papersum/internal/translate"
)

func translateSectionsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"sections": deps.Translator.Sections(),
		})
	}
}

func translateSectionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid section id", err, http.StatusBadRequest)
			return
		}
		res, err := deps.Translator.Translate(r.Context(), id)
		switch {
		case errors.Is(err, translate.ErrSectionNotFound):
			httputil.Fail(deps.Log, w, "section not found", err, http.StatusNotFound)
			return
		case errors.Is(err, context.Canceled):
			deps.Log.Info("translation cancelled by client", "section", id)
			return
		case err != nil:
			httputil.Fail(deps.Log, w, "translation failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}
