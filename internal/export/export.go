// Package export serializes a scene correspondence list into timeline
// interchange formats understood by the major editing suites.
package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/matchcut/matchcut-agent/internal/library"
	"github.com/matchcut/matchcut-agent/internal/scene"
)

type Format string

const (
	FormatXML    Format = "xml"
	FormatEDL    Format = "edl"
	FormatFCPXML Format = "fcpxml"
)

// ParseFormat validates a format selector from the API.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatXML, FormatEDL, FormatFCPXML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Extension doubles as the selector string: xml, edl, fcpxml.
func (f Format) Extension() string { return string(f) }

func (f Format) MIMEType() string {
	if f == FormatEDL {
		return "text/plain"
	}
	return "application/xml"
}

// Filename returns the download name for an export generated at the
// given instant: wedding_edit_<epoch-millis>.<ext>.
func Filename(f Format, at time.Time) string {
	return fmt.Sprintf("wedding_edit_%d.%s", at.UnixMilli(), f.Extension())
}

// Generate serializes the matches against the raw pool in the chosen
// format. Matches whose raw video id does not resolve in the pool are
// skipped silently; the output is deterministic for identical inputs.
func Generate(f Format, matches []scene.Match, rawPool []*library.MediaItem) (string, error) {
	switch f {
	case FormatXML:
		return generateXMEML(matches, rawPool), nil
	case FormatEDL:
		return generateEDL(matches, rawPool), nil
	case FormatFCPXML:
		return generateFCPXML(matches, rawPool), nil
	default:
		return "", fmt.Errorf("unknown export format %q", f)
	}
}

// poolIndex resolves a raw video id to its position in the pool, or -1.
func poolIndex(rawPool []*library.MediaItem, id string) int {
	for i, item := range rawPool {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// formatNumber renders a float with the shortest round-trip decimal
// form, so whole seconds print without a fraction (5 not 5.000000).
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
