package render

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"T2V/util"
)

const (
	musicVolume    = 0.3
	musicFadeLead  = 3.0 // seconds before the end at which the fade starts
	thumbTimestamp = 1.0
)

// EncodingError marks a failed encoder stage. Mandatory stages propagate it;
// optional stages absorb it and pass their input through unchanged.
type EncodingError struct {
	Stage  string
	Stderr string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding stage %s: %v", e.Stage, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Scene is one unit of assembly, owned by a single pipeline run.
type Scene struct {
	Index     int
	Text      string
	ImagePath string
	AudioPath string
	Duration  float64
}

// Options select the optional stages of the chain.
type Options struct {
	SubtitlesEnabled bool
	MusicEnabled     bool
}

// Result is the finished artifact set plus its read-back metadata.
type Result struct {
	VideoPath     string
	ThumbnailPath string
	Metadata      Metadata
}

// Assembler drives the encoder chain for one job at a time.
type Assembler struct {
	runner   Runner
	ws       *util.Workspace
	musicDir string
}

func NewAssembler(runner Runner, ws *util.Workspace, musicDir string) *Assembler {
	return &Assembler{runner: runner, ws: ws, musicDir: musicDir}
}

// Assemble runs the full chain: per-scene clips, concat, optional subtitles,
// optional music bed, delivery optimization, thumbnail, metadata probe.
// Per-scene render, concat and thumbnail are mandatory; subtitles, music and
// optimization degrade to pass-through on failure.
func (a *Assembler) Assemble(ctx context.Context, jobID string, scenes []Scene, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("job_id", jobID))

	clips, err := a.renderSceneClips(ctx, jobID, scenes)
	if err != nil {
		return nil, err
	}

	current, err := a.concat(ctx, jobID, clips)
	if err != nil {
		return nil, err
	}

	if opts.SubtitlesEnabled {
		current = a.burnSubtitles(ctx, jobID, scenes, current, log)
	}

	if opts.MusicEnabled {
		current = a.mixMusic(ctx, jobID, scenes, current, log)
	}

	current = a.optimize(ctx, jobID, current, log)

	thumb := a.ws.Path(util.DirFinal, jobID, "thumb.jpg")
	if _, stderr, err := a.runner.Run(ctx, "ffmpeg", ThumbnailArgs(current, thumb, thumbTimestamp)...); err != nil {
		return nil, &EncodingError{Stage: "thumbnail", Stderr: stderr, Err: err}
	}

	md := ProbeVideo(ctx, a.runner, current)
	if md.Duration == 0 {
		// degraded probe: the summed scene durations are closer to the
		// truth than zero
		for _, s := range scenes {
			md.Duration += s.Duration
		}
	}
	if md.FileSize == 0 {
		if fi, err := os.Stat(current); err == nil {
			md.FileSize = fi.Size()
		}
	}
	log.Info("assembly finished",
		zap.Float64("duration", md.Duration),
		zap.Int64("file_size", md.FileSize))

	return &Result{VideoPath: current, ThumbnailPath: thumb, Metadata: md}, nil
}

func (a *Assembler) renderSceneClips(ctx context.Context, jobID string, scenes []Scene) ([]string, error) {
	clips := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		out := a.ws.ScenePath(util.DirScenes, jobID, scene.Index, ".mp4")
		args := SceneClipArgs(scene.ImagePath, scene.AudioPath, out)
		if _, stderr, err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
			return nil, &EncodingError{
				Stage:  fmt.Sprintf("scene_%d", scene.Index),
				Stderr: stderr,
				Err:    err,
			}
		}
		clips = append(clips, out)
	}
	return clips, nil
}

func (a *Assembler) concat(ctx context.Context, jobID string, clips []string) (string, error) {
	listPath := a.ws.Path(util.DirFinal, jobID, "list.txt")
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		fmt.Fprintf(&b, "file '%s'\n", filepath.ToSlash(abs))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return "", &EncodingError{Stage: "concat", Err: err}
	}

	out := a.ws.Path(util.DirFinal, jobID, "concat.mp4")
	if _, stderr, err := a.runner.Run(ctx, "ffmpeg", ConcatArgs(listPath, out)...); err != nil {
		return "", &EncodingError{Stage: "concat", Stderr: stderr, Err: err}
	}
	return out, nil
}

func (a *Assembler) burnSubtitles(ctx context.Context, jobID string, scenes []Scene, in string, log *zap.Logger) string {
	srtPath := a.ws.Path(util.DirFinal, jobID, "subtitles.srt")
	if err := os.WriteFile(srtPath, []byte(BuildCues(scenes)), 0644); err != nil {
		log.Warn("subtitles: write cue file failed, passing through", zap.Error(err))
		return in
	}

	out := a.ws.Path(util.DirFinal, jobID, "subtitled.mp4")
	if _, stderr, err := a.runner.Run(ctx, "ffmpeg", SubtitleArgs(in, srtPath, out)...); err != nil {
		log.Warn("subtitles: burn failed, passing through",
			zap.String("stderr", stderr), zap.Error(err))
		return in
	}
	return out
}

func (a *Assembler) mixMusic(ctx context.Context, jobID string, scenes []Scene, in string, log *zap.Logger) string {
	track := a.pickTrack()
	if track == "" {
		log.Warn("music: no track available, skipping")
		return in
	}

	total := 0.0
	for _, s := range scenes {
		total += s.Duration
	}
	fadeStart := total - musicFadeLead
	if fadeStart < 0 {
		fadeStart = 0
	}

	out := a.ws.Path(util.DirFinal, jobID, "music.mp4")
	args := MusicArgs(in, track, out, musicVolume, fadeStart)
	if _, stderr, err := a.runner.Run(ctx, "ffmpeg", args...); err != nil {
		log.Warn("music: mix failed, passing through",
			zap.String("stderr", stderr), zap.Error(err))
		return in
	}
	return out
}

func (a *Assembler) optimize(ctx context.Context, jobID, in string, log *zap.Logger) string {
	out := a.ws.Path(util.DirFinal, jobID, "optimized.mp4")
	if _, stderr, err := a.runner.Run(ctx, "ffmpeg", OptimizeArgs(in, out)...); err != nil {
		log.Warn("optimize: re-encode failed, passing through",
			zap.String("stderr", stderr), zap.Error(err))
		return in
	}
	return out
}

// pickTrack returns one random track from the configured music pool, or ""
// when the pool is empty or unreadable.
func (a *Assembler) pickTrack() string {
	if a.musicDir == "" {
		return ""
	}
	entries, err := os.ReadDir(a.musicDir)
	if err != nil {
		return ""
	}
	var tracks []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mp3") {
			tracks = append(tracks, filepath.Join(a.musicDir, e.Name()))
		}
	}
	if len(tracks) == 0 {
		return ""
	}
	return tracks[rand.Intn(len(tracks))]
}
