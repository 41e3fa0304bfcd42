package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"

	"hackstats/internal/dataset"
	"hackstats/internal/services/fetching"
	"hackstats/internal/stats"
)

// FetchService is the part of fetching.Service the API drives.
type FetchService interface {
	Run(ctx context.Context)
	LastReport() (fetching.Report, bool)
}

type Handler struct {
	service     FetchService
	datasetPath string
	log         *slog.Logger
}

func NewHandler(service FetchService, datasetPath string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, datasetPath: datasetPath, log: log}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)
	r.Get("/fetching", h.handleFetch)
	r.Get("/fetching/last", h.handleLastReport)
	r.Get("/summary", h.handleSummary)
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Post("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/allocs", pprof.Handler("allocs").ServeHTTP)
		r.Get("/block", pprof.Handler("block").ServeHTTP)
		r.Get("/goroutine", pprof.Handler("goroutine").ServeHTTP)
		r.Get("/heap", pprof.Handler("heap").ServeHTTP)
		r.Get("/mutex", pprof.Handler("mutex").ServeHTTP)
		r.Get("/threadcreate", pprof.Handler("threadcreate").ServeHTTP)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	go h.service.Run(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Fetching started"})
}

func (h *Handler) handleLastReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.service.LastReport()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed fetch yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, err := dataset.Read(h.datasetPath)
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, dataset.ErrEmptyDataset):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no dataset available"})
		return
	case err != nil:
		h.log.Error("read dataset", "path", h.datasetPath, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "dataset unreadable"})
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(records))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
