// Package timecode converts between second offsets and non-drop-frame
// "HH:MM:SS:FF" timecode strings.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidTimecode = errors.New("invalid timecode")

// FromSeconds renders a second offset as HH:MM:SS:FF at the given
// frame rate. Every field is floored, never rounded, so converting the
// same instant twice always yields the same string.
func FromSeconds(seconds float64, frameRate int) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	whole := int(math.Floor(seconds))
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	f := int(math.Floor((seconds - math.Floor(seconds)) * float64(frameRate)))

	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}

// ToSeconds parses HH:MM:SS:FF back into seconds at the given frame
// rate. It is the inverse of FromSeconds up to frame granularity.
func ToSeconds(tc string, frameRate int) (float64, error) {
	if frameRate <= 0 {
		return 0, fmt.Errorf("%w: frame rate must be positive", ErrInvalidTimecode)
	}

	parts := strings.Split(tc, ":")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
	}

	fields := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
		}
		fields[i] = v
	}

	if fields[1] > 59 || fields[2] > 59 || fields[3] >= frameRate {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
	}

	return float64(fields[0]*3600+fields[1]*60+fields[2]) +
		float64(fields[3])/float64(frameRate), nil
}
