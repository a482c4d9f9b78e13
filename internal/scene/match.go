// Package scene holds the scene correspondence model: which interval
// of raw footage replaces which interval of the reference timeline.
package scene

import (
	"fmt"

	"github.com/matchcut/matchcut-agent/internal/library"
)

// Match is one replacement mapping. Times are seconds. RawVideoID is a
// non-owning reference into the media registry; consumers must
// tolerate it no longer resolving.
type Match struct {
	ID              string           `json:"id"`
	ReferenceStart  float64          `json:"reference_start"`
	ReferenceEnd    float64          `json:"reference_end"`
	RawVideoID      string           `json:"raw_video_id"`
	RawVideoStart   float64          `json:"raw_video_start"`
	RawVideoEnd     float64          `json:"raw_video_end"`
	SimilarityScore float64          `json:"similarity_score"`
	SceneType       library.Category `json:"scene_type"`
}

func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("match missing id")
	}
	if m.ReferenceStart < 0 || m.ReferenceStart >= m.ReferenceEnd {
		return fmt.Errorf("match %s: bad reference interval [%v, %v)", m.ID, m.ReferenceStart, m.ReferenceEnd)
	}
	if m.RawVideoID == "" {
		return fmt.Errorf("match %s: missing raw video id", m.ID)
	}
	if m.RawVideoStart >= m.RawVideoEnd {
		return fmt.Errorf("match %s: bad raw interval [%v, %v)", m.ID, m.RawVideoStart, m.RawVideoEnd)
	}
	if m.SimilarityScore < 0 || m.SimilarityScore > 1 {
		return fmt.Errorf("match %s: similarity score %v out of [0,1]", m.ID, m.SimilarityScore)
	}
	if !m.SceneType.Valid() {
		return fmt.Errorf("match %s: unknown scene type %q", m.ID, m.SceneType)
	}
	return nil
}

// ValidateSequence checks a whole detector result: every match valid,
// reference intervals non-overlapping and increasing.
func ValidateSequence(matches []Match) error {
	prevEnd := 0.0
	for i, m := range matches {
		if err := m.Validate(); err != nil {
			return err
		}
		if m.ReferenceStart < prevEnd {
			return fmt.Errorf("match %s: reference interval overlaps or runs backwards at index %d", m.ID, i)
		}
		prevEnd = m.ReferenceEnd
	}
	return nil
}
