package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"T2V/pkg/render"
	"T2V/util"
)

// Nominal pacing between consecutive backend calls within one job, applied
// as token buckets so tests are not coupled to wall-clock sleeps.
const (
	ImageCallInterval = time.Second
	VoiceCallInterval = 500 * time.Millisecond
)

// silentFallbackDuration is used when voice synthesis fails outright.
const silentFallbackDuration = 3.0

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// ImagePipeline paces image generation and degrades to a locally rendered
// placeholder when the backend fails, so a provider outage never aborts the
// job.
type ImagePipeline struct {
	provider ImageProvider
	enhancer *PromptEnhancer
	runner   render.Runner
	ws       *util.Workspace
	limiter  *rate.Limiter
}

// NewImagePipeline wires a backend into the pacing/fallback wrapper.
// enhancer may be nil. interval <= 0 disables pacing (tests).
func NewImagePipeline(provider ImageProvider, enhancer *PromptEnhancer, runner render.Runner, ws *util.Workspace, interval time.Duration) *ImagePipeline {
	return &ImagePipeline{
		provider: provider,
		enhancer: enhancer,
		runner:   runner,
		ws:       ws,
		limiter:  newLimiter(interval),
	}
}

// SceneImage produces the image for one scene and returns its path. The
// path is always inside the job's workspace namespace.
func (p *ImagePipeline) SceneImage(ctx context.Context, jobID string, index int, sceneText, style string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	prompt := BuildImagePrompt(sceneText, style)
	if p.enhancer != nil {
		enhanced, err := p.enhancer.Enhance(ctx, sceneText, style)
		if err != nil {
			zap.L().Warn("prompt enhancement failed, using plain prompt",
				zap.String("job_id", jobID), zap.Int("scene", index), zap.Error(err))
		} else {
			prompt = enhanced
		}
	}

	out := p.ws.ScenePath(util.DirImages, jobID, index, ".png")
	if err := p.provider.Generate(ctx, prompt, out); err != nil {
		zap.L().Warn("image generation failed, rendering placeholder",
			zap.String("job_id", jobID), zap.Int("scene", index), zap.Error(err))
		args := render.PlaceholderImageArgs(sceneText, out)
		if _, stderr, ferr := p.runner.Run(ctx, "ffmpeg", args...); ferr != nil {
			return "", fmt.Errorf("placeholder image: %v (%s)", ferr, stderr)
		}
	}
	return out, nil
}

// VoicePipeline paces voice synthesis and degrades to a fixed-duration
// silent clip when the backend fails.
type VoicePipeline struct {
	provider VoiceProvider
	runner   render.Runner
	ws       *util.Workspace
	limiter  *rate.Limiter
}

// NewVoicePipeline wires a backend into the pacing/fallback wrapper.
// interval <= 0 disables pacing (tests).
func NewVoicePipeline(provider VoiceProvider, runner render.Runner, ws *util.Workspace, interval time.Duration) *VoicePipeline {
	return &VoicePipeline{
		provider: provider,
		runner:   runner,
		ws:       ws,
		limiter:  newLimiter(interval),
	}
}

// SceneAudio produces the narration clip for one scene and returns its path
// and duration in seconds.
func (p *VoicePipeline) SceneAudio(ctx context.Context, jobID string, index int, text, voiceID string) (string, float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", 0, err
	}

	out := p.ws.ScenePath(util.DirAudio, jobID, index, ".wav")
	duration, err := p.provider.Synthesize(ctx, text, voiceID, out)
	if err != nil {
		zap.L().Warn("voice synthesis failed, using silent clip",
			zap.String("job_id", jobID), zap.Int("scene", index), zap.Error(err))
		args := render.SilentAudioArgs(silentFallbackDuration, out)
		if _, stderr, ferr := p.runner.Run(ctx, "ffmpeg", args...); ferr != nil {
			return "", 0, fmt.Errorf("silent audio: %v (%s)", ferr, stderr)
		}
		return out, silentFallbackDuration, nil
	}
	return out, duration, nil
}
