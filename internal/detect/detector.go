// Package detect defines the scene detector boundary. The orchestrator
// only depends on this interface; a real perceptual matcher can be
// swapped in without touching the pipeline, the registry or the
// exporters.
package detect

import (
	"context"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

// ProgressFunc reports coarse completion while a detection is running.
type ProgressFunc func(done, total int)

type Detector interface {
	// Initialize prepares the detector (model load, environment probe).
	// Called once per processing run before Detect.
	Initialize(ctx context.Context) error

	// Detect produces the correspondence list for one reference video
	// against the raw pool. Results must have valid fields and
	// non-overlapping, increasing reference intervals.
	Detect(ctx context.Context, reference *library.MediaItem, rawPool []*library.MediaItem, progress ProgressFunc) ([]scene.Match, error)
}
