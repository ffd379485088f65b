package render

import (
	"fmt"
	"math"
	"strings"
)

// FormatTimecode renders seconds as an SRT timecode, HH:MM:SS,mmm.
func FormatTimecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// BuildCues produces the full SRT document for the scene list. Cue i starts
// at the cumulative duration of scenes 0..i-1 and runs for scene i's
// duration; cues are 1-indexed and separated by a blank line.
func BuildCues(scenes []Scene) string {
	var b strings.Builder
	start := 0.0
	for i, scene := range scenes {
		end := start + scene.Duration
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimecode(start), FormatTimecode(end), scene.Text)
		start = end
	}
	return b.String()
}
