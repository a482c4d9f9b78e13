package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/matchcut/matchcut-agent/internal/export"
	"github.com/matchcut/matchcut-agent/internal/notify"
)

// exportTimelineHandler serializes the current match list to disk in
// the requested format and reports the output path.
func exportTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		format, err := export.ParseFormat(req.Format)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		outputDir := req.OutputDir
		if outputDir == "" {
			outputDir = cfg.ExportDir
		}
		if err := export.ValidateOutputDir(outputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		matches := cfg.Matches.List()
		if len(matches) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no scene matches available to export", "NO_MATCHES")
			return
		}

		pool, err := cfg.Library.RawPool(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load raw pool", "INTERNAL_ERROR")
			return
		}

		content, err := export.Generate(format, matches, pool)
		if err != nil {
			publishExport(cfg, notify.KindExportFailed, fmt.Sprintf("export failed: %v", err))
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		outputPath := filepath.Join(outputDir, export.Filename(format, time.Now()))
		if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
			publishExport(cfg, notify.KindExportFailed, fmt.Sprintf("failed to write %s export", format))
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		publishExport(cfg, notify.KindExportCompleted,
			fmt.Sprintf("timeline exported as %s to %s", format.Extension(), outputPath))
		WriteJSON(w, http.StatusOK, ExportResponse{
			Status:     "ok",
			Format:     format.Extension(),
			OutputPath: outputPath,
			ClipCount:  len(matches),
		})
	}
}

// downloadExportHandler streams the serialized timeline directly, with
// the format's MIME type and download filename.
func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		matches := cfg.Matches.List()
		if len(matches) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no scene matches available to export", "NO_MATCHES")
			return
		}

		pool, err := cfg.Library.RawPool(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load raw pool", "INTERNAL_ERROR")
			return
		}

		content, err := export.Generate(format, matches, pool)
		if err != nil {
			publishExport(cfg, notify.KindExportFailed, fmt.Sprintf("export failed: %v", err))
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", format.MIMEType())
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", export.Filename(format, time.Now())))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(content))

		publishExport(cfg, notify.KindExportCompleted,
			fmt.Sprintf("timeline exported as %s", format.Extension()))
	}
}

func publishExport(cfg ServerConfig, kind notify.Kind, message string) {
	if cfg.Notifier == nil {
		return
	}
	cfg.Notifier.Publish(notify.Event{Kind: kind, Message: message})
}
