package render

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// Stream-copy concat requires every per-scene clip to share identical codec
// parameters, so the scene-clip arguments must be byte-identical across
// scenes apart from the input/output paths.
func TestSceneClipArgsUniform(t *testing.T) {
	var stripped [][]string
	for i := 0; i < 4; i++ {
		img := fmt.Sprintf("/tmp/42_scene_%d.png", i)
		aud := fmt.Sprintf("/tmp/42_scene_%d.wav", i)
		out := fmt.Sprintf("/tmp/42_scene_%d.mp4", i)
		args := SceneClipArgs(img, aud, out)

		var rest []string
		for _, a := range args {
			if a == img || a == aud || a == out {
				continue
			}
			rest = append(rest, a)
		}
		stripped = append(stripped, rest)
	}
	for i := 1; i < len(stripped); i++ {
		if !reflect.DeepEqual(stripped[0], stripped[i]) {
			t.Fatalf("scene %d codec parameters differ:\n%v\n%v", i, stripped[0], stripped[i])
		}
	}
}

func TestSceneClipArgsParameters(t *testing.T) {
	args := SceneClipArgs("in.png", "in.wav", "out.mp4")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-loop 1",
		"-c:v libx264",
		"-tune stillimage",
		"-pix_fmt yuv420p",
		"-shortest",
		"scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("scene clip args missing %q: %s", want, joined)
		}
	}
}

func TestConcatArgsStreamCopy(t *testing.T) {
	args := ConcatArgs("list.txt", "out.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{"-f concat", "-safe 0", "-c copy"} {
		if !strings.Contains(joined, want) {
			t.Errorf("concat args missing %q: %s", want, joined)
		}
	}
	if strings.Contains(joined, "libx264") {
		t.Errorf("concat must not re-encode: %s", joined)
	}
}

func TestOptimizeArgsFastStart(t *testing.T) {
	joined := strings.Join(OptimizeArgs("in.mp4", "out.mp4"), " ")
	if !strings.Contains(joined, "-movflags +faststart") {
		t.Errorf("optimize args missing faststart: %s", joined)
	}
}

func TestEscapeDrawText(t *testing.T) {
	cases := map[string]string{
		"plain text":     "plain text",
		"it's 50%: done": `it\'s 50\%\: done`,
	}
	for in, want := range cases {
		if got := escapeDrawText(in); got != want {
			t.Errorf("escapeDrawText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSilentAudioArgs(t *testing.T) {
	joined := strings.Join(SilentAudioArgs(3.0, "out.wav"), " ")
	if !strings.Contains(joined, "anullsrc=r=44100:cl=stereo") || !strings.Contains(joined, "-t 3.0") {
		t.Errorf("silent audio args: %s", joined)
	}
}
