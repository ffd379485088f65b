package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"T2V/util"
)

// fakeRunner records every invocation and fails the stages whose marker
// string appears in failOn.
type fakeRunner struct {
	calls  [][]string
	failOn []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	joined := strings.Join(call, " ")
	for _, marker := range f.failOn {
		if strings.Contains(joined, marker) {
			return "", "simulated failure", errors.New("exit status 1")
		}
	}
	if name == "ffprobe" {
		return `{"streams":[{"width":1080,"height":1920,"duration":"9.5"}],` +
			`"format":{"duration":"9.5","size":"1048576"}}`, "", nil
	}
	return "", "", nil
}

func testScenes() []Scene {
	return []Scene{
		{Index: 0, Text: "first", ImagePath: "a.png", AudioPath: "a.wav", Duration: 3.0},
		{Index: 1, Text: "second", ImagePath: "b.png", AudioPath: "b.wav", Duration: 4.5},
		{Index: 2, Text: "third", ImagePath: "c.png", AudioPath: "c.wav", Duration: 2.0},
	}
}

func newTestAssembler(t *testing.T, runner Runner) *Assembler {
	t.Helper()
	ws, err := util.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewAssembler(runner, ws, "")
}

func TestAssembleFullChain(t *testing.T) {
	runner := &fakeRunner{}
	a := newTestAssembler(t, runner)

	res, err := a.Assemble(context.Background(), "42", testScenes(), Options{SubtitlesEnabled: true})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Metadata.Duration != 9.5 || res.Metadata.FileSize != 1048576 {
		t.Fatalf("metadata not read back: %+v", res.Metadata)
	}
	if !strings.Contains(res.VideoPath, "42_optimized.mp4") {
		t.Fatalf("final video = %q, want optimized output", res.VideoPath)
	}
	if !strings.Contains(res.ThumbnailPath, "42_thumb.jpg") {
		t.Fatalf("thumbnail = %q", res.ThumbnailPath)
	}

	// 3 scene clips + concat + subtitles + optimize + thumbnail + probe.
	if len(runner.calls) != 7 {
		t.Fatalf("got %d invocations, want 7", len(runner.calls))
	}
}

func TestAssembleSceneFailureFatal(t *testing.T) {
	runner := &fakeRunner{failOn: []string{"scene_1.mp4"}}
	a := newTestAssembler(t, runner)

	_, err := a.Assemble(context.Background(), "42", testScenes(), Options{})
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodingError", err)
	}
	if encErr.Stage != "scene_1" {
		t.Fatalf("stage = %q, want scene_1", encErr.Stage)
	}
}

func TestAssembleConcatFailureFatal(t *testing.T) {
	runner := &fakeRunner{failOn: []string{"-f concat"}}
	a := newTestAssembler(t, runner)

	_, err := a.Assemble(context.Background(), "42", testScenes(), Options{})
	var encErr *EncodingError
	if !errors.As(err, &encErr) || encErr.Stage != "concat" {
		t.Fatalf("err = %v, want concat EncodingError", err)
	}
}

func TestAssembleSubtitleFailurePassesThrough(t *testing.T) {
	runner := &fakeRunner{failOn: []string{"subtitles="}}
	a := newTestAssembler(t, runner)

	res, err := a.Assemble(context.Background(), "42", testScenes(), Options{SubtitlesEnabled: true})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// Optimization still ran over the pre-subtitle video.
	if !strings.Contains(res.VideoPath, "42_optimized.mp4") {
		t.Fatalf("final video = %q", res.VideoPath)
	}
}

func TestAssembleOptimizeFailurePassesThrough(t *testing.T) {
	runner := &fakeRunner{failOn: []string{"+faststart"}}
	a := newTestAssembler(t, runner)

	res, err := a.Assemble(context.Background(), "42", testScenes(), Options{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.Contains(res.VideoPath, "42_concat.mp4") {
		t.Fatalf("final video = %q, want unoptimized concat output", res.VideoPath)
	}
}

func TestAssembleThumbnailFailureFatal(t *testing.T) {
	runner := &fakeRunner{failOn: []string{"42_thumb.jpg"}}
	a := newTestAssembler(t, runner)

	_, err := a.Assemble(context.Background(), "42", testScenes(), Options{})
	var encErr *EncodingError
	if !errors.As(err, &encErr) || encErr.Stage != "thumbnail" {
		t.Fatalf("err = %v, want thumbnail EncodingError", err)
	}
}

func TestAssembleProbeFailureFallsBackToSceneDurations(t *testing.T) {
	runner := &fakeRunner{failOn: []string{"ffprobe"}}
	a := newTestAssembler(t, runner)

	res, err := a.Assemble(context.Background(), "42", testScenes(), Options{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Metadata.Duration != 9.5 {
		t.Fatalf("duration = %v, want summed scene durations 9.5", res.Metadata.Duration)
	}
}

func TestAssembleMusicWithoutPoolPassesThrough(t *testing.T) {
	runner := &fakeRunner{}
	a := newTestAssembler(t, runner)

	res, err := a.Assemble(context.Background(), "42", testScenes(), Options{MusicEnabled: true})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, call := range runner.calls {
		if strings.Contains(strings.Join(call, " "), "amix") {
			t.Fatalf("music mix ran with an empty pool")
		}
	}
	if res.VideoPath == "" {
		t.Fatal("no final video")
	}
}
