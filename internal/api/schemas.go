package api

import (
	"time"

	"github.com/matchcut/matchcut-agent/internal/ingest"
	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/notify"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	Stage         string `json:"stage"`
	Progress      int    `json:"progress"`
	Message       string `json:"message,omitempty"`
	HasReference  bool   `json:"has_reference"`
	RawCount      int    `json:"raw_count"`
	MatchCount    int    `json:"match_count"`
	ActiveUploads int    `json:"active_uploads"`
}

type IngestRequest struct {
	Role  string              `json:"role"`
	Files []FileDescriptorDTO `json:"files"`
}

type FileDescriptorDTO struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Locator   string `json:"locator"`
}

type IngestResponse struct {
	Committed []MediaItemResponse `json:"committed"`
	Uploads   []UploadResponse    `json:"uploads"`
}

type MediaItemResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	SizeBytes int64   `json:"size_bytes,omitempty"`
	Category  string  `json:"category,omitempty"`
	DurationS float64 `json:"duration_s,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type LibraryResponse struct {
	Reference *MediaItemResponse  `json:"reference,omitempty"`
	RawPool   []MediaItemResponse `json:"raw_pool"`
}

type SetCategoryRequest struct {
	Category string `json:"category"`
}

type CategoryCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

type UploadResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
	Progress  int    `json:"progress"`
	Role      string `json:"role"`
	StartedAt string `json:"started_at"`
}

type UploadsResponse struct {
	Uploads []UploadResponse `json:"uploads"`
}

type EventResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	At      string `json:"at"`
}

type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

type ExportRequest struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir,omitempty"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaItemToResponse(item *library.MediaItem) MediaItemResponse {
	return MediaItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Role:      string(item.Role),
		SizeBytes: item.SizeBytes,
		Category:  string(item.Category),
		DurationS: item.DurationS,
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
	}
}

func UploadToResponse(t ingest.UploadTask) UploadResponse {
	return UploadResponse{
		ID:        t.ID,
		FileName:  t.FileName,
		SizeBytes: t.SizeBytes,
		Progress:  t.Progress,
		Role:      string(t.Role),
		StartedAt: t.StartedAt.Format(time.RFC3339),
	}
}

func EventToResponse(ev notify.Event) EventResponse {
	return EventResponse{
		Kind:    string(ev.Kind),
		Message: ev.Message,
		At:      ev.At.Format(time.RFC3339),
	}
}
