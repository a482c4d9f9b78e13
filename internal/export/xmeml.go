package export

import (
	"fmt"
	"strings"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

// generateXMEML builds a Premiere-style xmeml v4 sequence. The
// sequence duration is a fixed placeholder; clip positions carry frame
// counts at timebase 30. Clipitem and file ids keep the match's
// position in the full list, so skipped dangling references leave
// numbering gaps rather than renumbering later clips.
func generateXMEML(matches []scene.Match, rawPool []*library.MediaItem) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<xmeml version=\"4\">\n")
	b.WriteString("  <sequence>\n")
	b.WriteString("    <name>Wedding Edit</name>\n")
	b.WriteString("    <duration>3600</duration>\n")
	b.WriteString("    <rate>\n")
	b.WriteString("      <timebase>30</timebase>\n")
	b.WriteString("      <ntsc>TRUE</ntsc>\n")
	b.WriteString("    </rate>\n")
	b.WriteString("    <media>\n")
	b.WriteString("      <video>\n")

	for i, match := range matches {
		idx := poolIndex(rawPool, match.RawVideoID)
		if idx < 0 {
			continue
		}
		raw := rawPool[idx]

		b.WriteString("        <track>\n")
		fmt.Fprintf(&b, "          <clipitem id=\"clipitem-%d\">\n", i+1)
		fmt.Fprintf(&b, "            <name>%s - %s</name>\n", raw.Name, match.SceneType)
		fmt.Fprintf(&b, "            <duration>%s</duration>\n", formatNumber((match.RawVideoEnd-match.RawVideoStart)*30))
		b.WriteString("            <rate>\n")
		b.WriteString("              <timebase>30</timebase>\n")
		b.WriteString("              <ntsc>TRUE</ntsc>\n")
		b.WriteString("            </rate>\n")
		fmt.Fprintf(&b, "            <start>%s</start>\n", formatNumber(match.ReferenceStart*30))
		fmt.Fprintf(&b, "            <end>%s</end>\n", formatNumber(match.ReferenceEnd*30))
		fmt.Fprintf(&b, "            <file id=\"file-%d\">\n", i+1)
		fmt.Fprintf(&b, "              <name>%s</name>\n", raw.Name)
		fmt.Fprintf(&b, "              <pathurl>file://%s</pathurl>\n", raw.Locator)
		b.WriteString("            </file>\n")
		b.WriteString("          </clipitem>\n")
		b.WriteString("        </track>\n")
	}

	b.WriteString("      </video>\n")
	b.WriteString("    </media>\n")
	b.WriteString("  </sequence>\n")
	b.WriteString("</xmeml>")
	return b.String()
}
