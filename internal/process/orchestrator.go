// Package process drives the analyze → match → build → export pipeline
// as a strictly linear state machine.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matchcut/matchcut-agent/internal/detect"
	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/notify"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

type Stage string

const (
	StageIdle      Stage = "idle"
	StageAnalyzing Stage = "analyzing"
	StageMatching  Stage = "matching"
	StageBuilding  Stage = "building"
	StageExporting Stage = "exporting"
	StageCompleted Stage = "completed"
	StageError     Stage = "error"
)

// State is the externally observable snapshot of a run.
type State struct {
	Stage    Stage  `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

var (
	// ErrPrecondition means the run was refused before any state
	// changed: a reference video and at least one raw video are
	// required.
	ErrPrecondition = errors.New("processing precondition failed")

	// ErrRunInProgress means a run is already active; completed and
	// error are the only terminal stages a new run may start from.
	ErrRunInProgress = errors.New("processing already running")
)

// Orchestrator owns the ProcessingState and is the only writer of the
// scene match store. Once started, a run terminates only by success or
// internal failure; there is no mid-run cancellation.
type Orchestrator struct {
	registry *library.Service
	matches  *scene.Store
	detector detect.Detector
	notifier notify.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	running bool
}

func NewOrchestrator(registry *library.Service, matches *scene.Store, detector detect.Detector, notifier notify.Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		matches:  matches,
		detector: detector,
		notifier: notifier,
		logger:   logger,
		state:    State{Stage: StageIdle},
	}
}

// Snapshot returns the current processing state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start validates preconditions synchronously, then runs the pipeline
// in the background. On precondition failure nothing changes and the
// state stays where it was.
func (o *Orchestrator) Start(ctx context.Context) error {
	reference, err := o.registry.Reference(ctx)
	if err != nil {
		return fmt.Errorf("reading reference video: %w", err)
	}
	rawPool, err := o.registry.RawPool(ctx)
	if err != nil {
		return fmt.Errorf("reading raw pool: %w", err)
	}
	if reference == nil || len(rawPool) == 0 {
		return fmt.Errorf("%w: add a reference video and at least one raw video", ErrPrecondition)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	// The run outlives the caller: an HTTP start request ends as soon
	// as Start returns, and its canceled context must not abort the
	// pipeline.
	go o.run(context.WithoutCancel(ctx), reference, rawPool)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, reference *library.MediaItem, rawPool []*library.MediaItem) {
	start := time.Now()

	o.setState(StageAnalyzing, 0, "analyzing reference video")
	if err := o.detector.Initialize(ctx); err != nil {
		o.fail("scene detector initialization", err)
		return
	}
	o.setState(StageAnalyzing, 10, "analyzing reference video")
	o.setState(StageAnalyzing, 30, "analyzing reference video")

	o.setState(StageMatching, 30, "identifying scenes and classifying by type")
	o.setState(StageMatching, 50, "identifying scenes and classifying by type")

	o.setState(StageBuilding, 50, "finding correspondences in raw footage")
	matches, err := o.detector.Detect(ctx, reference, rawPool, func(done, total int) {
		if total <= 0 {
			return
		}
		o.setState(StageBuilding, 70+done*20/total, "finding correspondences in raw footage")
	})
	if err != nil {
		o.fail("scene correspondence", err)
		return
	}

	o.setState(StageExporting, 90, "finalizing correspondences")

	// The previous run's matches survive every failure above; they are
	// discarded only here, by the next successful completion.
	o.matches.ReplaceAll(matches)

	o.setState(StageCompleted, 100, "")
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()

	if o.logger != nil {
		o.logger.Info("processing run completed",
			"matches", len(matches),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (o *Orchestrator) setState(stage Stage, progress int, message string) {
	o.mu.Lock()
	o.state = State{Stage: stage, Progress: progress, Message: message}
	o.mu.Unlock()

	if o.notifier != nil {
		o.notifier.Publish(notify.Event{
			Kind:    notify.KindStageChanged,
			Message: fmt.Sprintf("%s (%d%%)", stage, progress),
		})
	}
	if o.logger != nil {
		o.logger.Debug("processing stage", "stage", stage, "progress", progress)
	}
}

func (o *Orchestrator) fail(step string, err error) {
	msg := fmt.Sprintf("%s failed: %v", step, err)
	o.setState(StageError, 0, msg)

	o.mu.Lock()
	o.running = false
	o.mu.Unlock()

	if o.logger != nil {
		o.logger.Error("processing run failed", "step", step, "error", err)
	}
}
