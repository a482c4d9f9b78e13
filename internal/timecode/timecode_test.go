package timecode

import (
	"math"
	"testing"
)

func TestFromSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		fps     int
		want    string
	}{
		{name: "zero", seconds: 0, fps: 30, want: "00:00:00:00"},
		{name: "five seconds", seconds: 5, fps: 30, want: "00:00:05:00"},
		{name: "half second", seconds: 0.5, fps: 30, want: "00:00:00:15"},
		{name: "one minute", seconds: 60, fps: 30, want: "00:01:00:00"},
		{name: "one hour", seconds: 3600, fps: 30, want: "01:00:00:00"},
		{name: "mixed", seconds: 3725.4, fps: 30, want: "01:02:05:11"},
		{name: "last frame floors", seconds: 0.999, fps: 30, want: "00:00:00:29"},
		{name: "negative clamps", seconds: -3, fps: 30, want: "00:00:00:00"},
		{name: "25 fps", seconds: 1.5, fps: 25, want: "00:00:01:12"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromSeconds(tc.seconds, tc.fps)
			if got != tc.want {
				t.Fatalf("FromSeconds(%v, %d) = %q, want %q", tc.seconds, tc.fps, got, tc.want)
			}
		})
	}
}

func TestFromSeconds_Idempotent(t *testing.T) {
	// Converting the same instant twice must produce identical strings.
	for _, s := range []float64{0, 1.2345, 17.966, 3599.99} {
		a := FromSeconds(s, 30)
		b := FromSeconds(s, 30)
		if a != b {
			t.Fatalf("FromSeconds(%v) unstable: %q != %q", s, a, b)
		}
	}
}

func TestToSeconds_Invalid(t *testing.T) {
	for _, tc := range []string{"", "00:00:00", "aa:00:00:00", "00:61:00:00", "00:00:00:30"} {
		if _, err := ToSeconds(tc, 30); err == nil {
			t.Errorf("ToSeconds(%q) should fail", tc)
		}
	}
}

func TestRoundTrip_FrameGranularity(t *testing.T) {
	// For all s >= 0, ToSeconds(FromSeconds(s, f), f) recovers s
	// truncated to the nearest 1/f.
	const fps = 30
	for _, s := range []float64{0, 0.4, 5, 12.034, 19.999, 61.5, 3661.77} {
		got, err := ToSeconds(FromSeconds(s, fps), fps)
		if err != nil {
			t.Fatalf("round trip of %v failed: %v", s, err)
		}
		truncated := math.Floor(s*fps) / fps
		if math.Abs(got-truncated) > 1e-9 {
			t.Errorf("round trip of %v = %v, want %v", s, got, truncated)
		}
	}
}
