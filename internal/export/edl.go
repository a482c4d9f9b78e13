package export

import (
	"fmt"
	"strings"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
	"github.com/matchcut/matchcut-agent/internal/timecode"
)

const edlFrameRate = 30

// generateEDL builds a CMX-style edit decision list. Each event keeps
// the match's 1-based position in the full list as its event number,
// the raw item's name truncated to 8 runes as the reel, and the four
// timecodes source-in, source-out, record-in, record-out.
func generateEDL(matches []scene.Match, rawPool []*library.MediaItem) string {
	var b strings.Builder
	b.WriteString("TITLE: Wedding Edit\nFCM: NON-DROP FRAME\n\n")

	for i, match := range matches {
		idx := poolIndex(rawPool, match.RawVideoID)
		if idx < 0 {
			continue
		}
		raw := rawPool[idx]

		srcIn := timecode.FromSeconds(match.RawVideoStart, edlFrameRate)
		srcOut := timecode.FromSeconds(match.RawVideoEnd, edlFrameRate)
		recIn := timecode.FromSeconds(match.ReferenceStart, edlFrameRate)
		recOut := timecode.FromSeconds(match.ReferenceEnd, edlFrameRate)

		fmt.Fprintf(&b, "%03d  %s V     C        %s %s %s %s\n",
			i+1, truncateReel(raw.Name), srcIn, srcOut, recIn, recOut)
		fmt.Fprintf(&b, "* FROM CLIP NAME: %s\n", raw.Name)
		fmt.Fprintf(&b, "* SCENE: %s\n\n", match.SceneType)
	}

	return b.String()
}

// truncateReel shortens a name to 8 runes without padding.
func truncateReel(name string) string {
	runes := []rune(name)
	if len(runes) > 8 {
		return string(runes[:8])
	}
	return name
}
