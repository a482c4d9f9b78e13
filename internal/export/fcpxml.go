package export

import (
	"fmt"
	"strings"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

// generateFCPXML builds a Final Cut Pro fcpxml 1.9 document. The
// resources block lists every pool item whether referenced or not, and
// clips address assets by the raw item's original pool position, so
// asset numbering never shifts as matches come and go. Offsets and
// durations are rational seconds with an "s" suffix.
func generateFCPXML(matches []scene.Match, rawPool []*library.MediaItem) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<!DOCTYPE fcpxml>\n")
	b.WriteString("<fcpxml version=\"1.9\">\n")
	b.WriteString("  <resources>\n")

	for i, item := range rawPool {
		fmt.Fprintf(&b, "    <asset id=\"asset-%d\" name=\"%s\" src=\"file://%s\" />\n", i+1, item.Name, item.Locator)
	}

	b.WriteString("  </resources>\n")
	b.WriteString("  <library>\n")
	b.WriteString("    <event name=\"Wedding Edit\">\n")
	b.WriteString("      <project name=\"Wedding Timeline\">\n")
	b.WriteString("        <sequence>\n")
	b.WriteString("          <spine>\n")

	for _, match := range matches {
		idx := poolIndex(rawPool, match.RawVideoID)
		if idx < 0 {
			continue
		}

		duration := match.ReferenceEnd - match.ReferenceStart
		fmt.Fprintf(&b, "            <clip name=\"%s\" offset=\"%ss\" duration=\"%ss\">\n",
			match.SceneType, formatNumber(match.ReferenceStart), formatNumber(duration))
		fmt.Fprintf(&b, "              <video ref=\"asset-%d\" offset=\"%ss\" duration=\"%ss\" />\n",
			idx+1, formatNumber(match.RawVideoStart), formatNumber(duration))
		b.WriteString("            </clip>\n")
	}

	b.WriteString("          </spine>\n")
	b.WriteString("        </sequence>\n")
	b.WriteString("      </project>\n")
	b.WriteString("    </event>\n")
	b.WriteString("  </library>\n")
	b.WriteString("</fcpxml>")
	return b.String()
}
