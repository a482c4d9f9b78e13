package detect

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

const (
	minScenes       = 8
	sceneSpread     = 5 // scene count is minScenes..minScenes+sceneSpread-1
	minSceneLenS    = 5.0
	sceneLenSpreadS = 15.0 // scene length is 5..20 seconds
	rawStartSpreadS = 30.0
	minSimilarity   = 0.7
)

// Synthesizer is the shipped detector stand-in. It manufactures a
// plausible correspondence list: sequential segments covering the
// reference timeline, each assigned to a pseudo-random raw item.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthesizer seeds the generator. Seed 0 means non-deterministic.
func NewSynthesizer(seed int64) *Synthesizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

func (s *Synthesizer) Initialize(ctx context.Context) error {
	// A real detector loads its model here; the stand-in has nothing
	// to load and never fails.
	return nil
}

func (s *Synthesizer) Detect(ctx context.Context, reference *library.MediaItem, rawPool []*library.MediaItem, progress ProgressFunc) ([]scene.Match, error) {
	if reference == nil {
		return nil, fmt.Errorf("reference video is required")
	}
	if len(rawPool) == 0 {
		return nil, fmt.Errorf("raw pool is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sceneTypes := library.Categories()
	sceneTypes = sceneTypes[:len(sceneTypes)-1] // never synthesize "unknown"

	total := minScenes + s.rng.Intn(sceneSpread)
	matches := make([]scene.Match, 0, total)
	current := 0.0

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		duration := minSceneLenS + s.rng.Float64()*sceneLenSpreadS
		raw := rawPool[s.rng.Intn(len(rawPool))]
		rawStart := s.rng.Float64() * rawStartSpreadS

		sceneType := raw.Category
		if !sceneType.Valid() || sceneType == library.CategoryUnknown {
			sceneType = sceneTypes[s.rng.Intn(len(sceneTypes))]
		}

		matches = append(matches, scene.Match{
			ID:              library.NewID(),
			ReferenceStart:  current,
			ReferenceEnd:    current + duration,
			RawVideoID:      raw.ID,
			RawVideoStart:   rawStart,
			RawVideoEnd:     rawStart + duration,
			SimilarityScore: minSimilarity + s.rng.Float64()*(1-minSimilarity),
			SceneType:       sceneType,
		})

		current += duration
		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := scene.ValidateSequence(matches); err != nil {
		return nil, fmt.Errorf("synthesized matches invalid: %w", err)
	}
	return matches, nil
}
