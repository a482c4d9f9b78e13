// Package ingest admits media files into the registry, routing large
// files through simulated chunked uploads that can be canceled.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/notify"
)

// LargeFileThreshold is the size above which a file is ingested
// asynchronously in chunks instead of being committed immediately.
const LargeFileThreshold = 1_000_000_000

// progressStep is the percentage added per upload tick, giving a
// large file roughly twenty chunks from admission to commit.
const progressStep = 5

// FileDescriptor describes a file offered for ingestion.
type FileDescriptor struct {
	Name      string
	SizeBytes int64
	Locator   string
}

// UploadTask is a point-in-time snapshot of an in-flight upload.
type UploadTask struct {
	ID        string       `json:"id"`
	FileName  string       `json:"file_name"`
	SizeBytes int64        `json:"size_bytes"`
	Progress  int          `json:"progress"`
	Role      library.Role `json:"role"`
	StartedAt time.Time    `json:"started_at"`
}

type uploadTask struct {
	UploadTask
	item   *library.MediaItem
	cancel context.CancelFunc
}

// Result reports the outcome of an admission: items committed
// synchronously and upload tasks started for the oversized files.
type Result struct {
	Committed []*library.MediaItem `json:"committed"`
	Uploads   []UploadTask         `json:"uploads"`
}

// Manager routes admitted files either straight into the registry or
// through a background upload goroutine per oversized file. Commit and
// task removal happen under one lock so a canceled upload can never
// leave a committed item behind, and a finished one is committed
// exactly once.
type Manager struct {
	registry *library.Service
	notifier notify.Notifier
	logger   *slog.Logger
	tick     time.Duration

	mu    sync.Mutex
	tasks map[string]*uploadTask
}

func NewManager(registry *library.Service, notifier notify.Notifier, tick time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if tick <= 0 {
		tick = 150 * time.Millisecond
	}
	return &Manager{
		registry: registry,
		notifier: notifier,
		logger:   logger,
		tick:     tick,
		tasks:    make(map[string]*uploadTask),
	}
}

// Admit accepts a batch of files for the given role. For the reference
// role only the first file is considered. Files at or below
// LargeFileThreshold are committed before Admit returns, preserving
// batch order; larger files get an upload task each.
func (m *Manager) Admit(ctx context.Context, files []FileDescriptor, role library.Role) (*Result, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to admit")
	}
	if role != library.RoleReference && role != library.RoleRaw {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if role == library.RoleReference {
		files = files[:1]
	}

	res := &Result{}
	var small []*library.MediaItem
	for _, f := range files {
		item := &library.MediaItem{
			ID:        library.NewID(),
			Name:      f.Name,
			Locator:   f.Locator,
			Role:      role,
			SizeBytes: f.SizeBytes,
		}
		if f.SizeBytes > LargeFileThreshold {
			res.Uploads = append(res.Uploads, m.startUpload(item))
			continue
		}
		small = append(small, item)
	}

	if len(small) > 0 {
		if err := m.commit(ctx, role, small...); err != nil {
			return nil, err
		}
		res.Committed = small
		for _, item := range small {
			m.notifyCommitted(item)
		}
	}
	return res, nil
}

// Tasks returns snapshots of all in-flight uploads, oldest first.
func (m *Manager) Tasks() []UploadTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]UploadTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.UploadTask)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Cancel stops the upload with the given id. Canceling an unknown or
// already finished upload is a no-op. A canceled upload never commits
// its media item.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if ok {
		delete(m.tasks, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	t.cancel()
	m.logger.Info("upload canceled", "upload_id", id, "file", t.FileName)
	m.publish(notify.KindUploadCanceled, fmt.Sprintf("upload of %s canceled", t.FileName))
	return true
}

func (m *Manager) startUpload(item *library.MediaItem) UploadTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &uploadTask{
		// The task shares the pending item's id, so cancellation and
		// the eventual registry entry address the same file.
		UploadTask: UploadTask{
			ID:        item.ID,
			FileName:  item.Name,
			SizeBytes: item.SizeBytes,
			Role:      item.Role,
			StartedAt: time.Now().UTC(),
		},
		item:   item,
		cancel: cancel,
	}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()

	m.logger.Info("chunked upload started",
		"upload_id", t.ID, "file", item.Name, "size", humanize.Bytes(uint64(item.SizeBytes)))
	go m.runUpload(ctx, t.ID)
	return t.UploadTask
}

func (m *Manager) runUpload(ctx context.Context, id string) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := m.advance(ctx, id); done {
				return
			}
		}
	}
}

// advance moves one upload forward by a step and, on reaching 100,
// commits the item and removes the task in the same critical section.
// Returns true when the goroutine should stop.
func (m *Manager) advance(ctx context.Context, id string) bool {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		// Canceled between ticks.
		m.mu.Unlock()
		return true
	}

	t.Progress += progressStep
	if t.Progress < 100 {
		m.mu.Unlock()
		return false
	}
	t.Progress = 100

	err := m.commit(ctx, t.Role, t.item)
	delete(m.tasks, id)
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("upload commit failed", "upload_id", id, "file", t.FileName, "error", err)
		m.publish(notify.KindIngestFailed, fmt.Sprintf("failed to ingest %s: %v", t.FileName, err))
		return true
	}
	m.notifyCommitted(t.item)
	return true
}

func (m *Manager) commit(ctx context.Context, role library.Role, items ...*library.MediaItem) error {
	if role == library.RoleReference {
		return m.registry.SetReference(ctx, items[0])
	}
	return m.registry.AddRaw(ctx, items)
}

func (m *Manager) notifyCommitted(item *library.MediaItem) {
	m.publish(notify.KindIngestCompleted,
		fmt.Sprintf("%s ingested as %s (%s)", item.Name, item.Role, humanize.Bytes(uint64(item.SizeBytes))))
}

func (m *Manager) publish(kind notify.Kind, message string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(notify.Event{Kind: kind, Message: message})
}
