package render

import (
	"strings"
	"testing"
)

func TestFormatTimecode(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{3.0, "00:00:03,000"},
		{7.5, "00:00:07,500"},
		{9.5, "00:00:09,500"},
		{61.25, "00:01:01,250"},
		{3661.001, "01:01:01,001"},
		{-1, "00:00:00,000"},
	}
	for _, c := range cases {
		if got := FormatTimecode(c.seconds); got != c.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestBuildCues(t *testing.T) {
	scenes := []Scene{
		{Index: 0, Text: "first scene", Duration: 3.0},
		{Index: 1, Text: "second scene", Duration: 4.5},
		{Index: 2, Text: "third scene", Duration: 2.0},
	}

	got := BuildCues(scenes)
	want := "1\n00:00:00,000 --> 00:00:03,000\nfirst scene\n\n" +
		"2\n00:00:03,000 --> 00:00:07,500\nsecond scene\n\n" +
		"3\n00:00:07,500 --> 00:00:09,500\nthird scene\n\n"

	if got != want {
		t.Fatalf("BuildCues mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if !strings.HasSuffix(got, "\n\n") {
		t.Fatalf("cue document must end with a blank line")
	}
}
