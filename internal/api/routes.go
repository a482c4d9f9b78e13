package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matchcut/matchcut-agent/internal/ingest"
	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/notify"
	"github.com/matchcut/matchcut-agent/internal/process"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/events", eventsHandler(cfg))
		r.Get("/library", libraryHandler(cfg))
		r.Post("/library/ingest", ingestHandler(cfg))
		r.Get("/library/categories", categoryCountsHandler(cfg))
		r.Put("/library/{id}/category", setCategoryHandler(cfg))
		r.Get("/uploads", listUploadsHandler(cfg))
		r.Delete("/uploads/{id}", cancelUploadHandler(cfg))
		r.Post("/process", startProcessHandler(cfg))
		r.Get("/process", processStateHandler(cfg))
		r.Get("/matches", listMatchesHandler(cfg))
		r.Get("/playback/media", playbackHandler(cfg))
		r.Post("/export", exportTimelineHandler(cfg))
		r.Get("/export/download", downloadExportHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reference, _ := cfg.Library.Reference(ctx)
		rawCount, _ := cfg.Library.CountRaw(ctx)
		state := cfg.Orchestrator.Snapshot()

		WriteJSON(w, http.StatusOK, StatusResponse{
			Stage:         string(state.Stage),
			Progress:      state.Progress,
			Message:       state.Message,
			HasReference:  reference != nil,
			RawCount:      rawCount,
			MatchCount:    cfg.Matches.Count(),
			ActiveUploads: len(cfg.Ingest.Tasks()),
		})
	}
}

func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := cfg.Events.Events()
		resp := EventsResponse{Events: make([]EventResponse, len(events))}
		for i, ev := range events {
			resp.Events[i] = EventToResponse(ev)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func libraryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reference, err := cfg.Library.Reference(ctx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load reference", "INTERNAL_ERROR")
			return
		}
		pool, err := cfg.Library.RawPool(ctx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load raw pool", "INTERNAL_ERROR")
			return
		}

		resp := LibraryResponse{RawPool: make([]MediaItemResponse, len(pool))}
		if reference != nil {
			ref := MediaItemToResponse(reference)
			resp.Reference = &ref
		}
		for i, item := range pool {
			resp.RawPool[i] = MediaItemToResponse(item)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func ingestHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.Files) == 0 {
			WriteError(w, http.StatusBadRequest, "files must not be empty", "BAD_REQUEST")
			return
		}

		files := make([]ingest.FileDescriptor, len(req.Files))
		for i, f := range req.Files {
			if f.Name == "" || f.Locator == "" {
				WriteError(w, http.StatusBadRequest, "file name and locator are required", "BAD_REQUEST")
				return
			}
			files[i] = ingest.FileDescriptor{Name: f.Name, SizeBytes: f.SizeBytes, Locator: f.Locator}
		}

		result, err := cfg.Ingest.Admit(r.Context(), files, library.Role(req.Role))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		resp := IngestResponse{
			Committed: make([]MediaItemResponse, len(result.Committed)),
			Uploads:   make([]UploadResponse, len(result.Uploads)),
		}
		for i, item := range result.Committed {
			resp.Committed[i] = MediaItemToResponse(item)
		}
		for i, task := range result.Uploads {
			resp.Uploads[i] = UploadToResponse(task)
		}
		WriteJSON(w, http.StatusAccepted, resp)
	}
}

func categoryCountsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := cfg.Library.CategoryCounts(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to count categories", "INTERNAL_ERROR")
			return
		}

		resp := CategoryCountsResponse{Counts: make(map[string]int, len(counts))}
		for cat, n := range counts {
			resp.Counts[string(cat)] = n
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func setCategoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "media id required", "BAD_REQUEST")
			return
		}

		var req SetCategoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		item, err := cfg.Library.SetCategory(r.Context(), id, library.Category(req.Category))
		if errors.Is(err, library.ErrInvalidCategory) {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if errors.Is(err, library.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "media item not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		publishCategoryTally(cfg, r)
		WriteJSON(w, http.StatusOK, MediaItemToResponse(item))
	}
}

// publishCategoryTally emits the per-category raw pool counts so
// observers can refresh their breakdown without polling.
func publishCategoryTally(cfg ServerConfig, r *http.Request) {
	if cfg.Notifier == nil {
		return
	}
	counts, err := cfg.Library.CategoryCounts(r.Context())
	if err != nil {
		return
	}

	parts := make([]string, 0, len(counts))
	for _, cat := range library.Categories() {
		if n := counts[cat]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", cat, n))
		}
	}
	cfg.Notifier.Publish(notify.Event{
		Kind:    notify.KindCategoryTally,
		Message: strings.Join(parts, " "),
	})
}

func listUploadsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := cfg.Ingest.Tasks()
		resp := UploadsResponse{Uploads: make([]UploadResponse, len(tasks))}
		for i, task := range tasks {
			resp.Uploads[i] = UploadToResponse(task)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func cancelUploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "upload id required", "BAD_REQUEST")
			return
		}

		if !cfg.Ingest.Cancel(id) {
			WriteError(w, http.StatusNotFound, "upload not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func startProcessHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Orchestrator.Start(r.Context())
		if errors.Is(err, process.ErrRunInProgress) {
			WriteError(w, http.StatusConflict, err.Error(), "RUN_IN_PROGRESS")
			return
		}
		if errors.Is(err, process.ErrPrecondition) {
			WriteError(w, http.StatusBadRequest, err.Error(), "PRECONDITION_FAILED")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, cfg.Orchestrator.Snapshot())
	}
}

func processStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Orchestrator.Snapshot())
	}
}

func listMatchesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Matches.List())
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID := r.URL.Query().Get("media_id")
		if mediaID == "" {
			WriteError(w, http.StatusBadRequest, "media_id is required", "BAD_REQUEST")
			return
		}

		item, err := cfg.Library.Get(r.Context(), mediaID)
		if errors.Is(err, library.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "media item not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		if err := cfg.Playback.ServeItem(w, r, item); err != nil {
			cfg.Logger.Error("playback error", "error", err, "media_id", mediaID)
		}
	}
}
