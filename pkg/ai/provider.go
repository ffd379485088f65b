// Package ai provides the pluggable image-generation and voice-synthesis
// capabilities. Each capability is a strategy interface with backends
// selected by configuration, wrapped by a pipeline that paces external calls
// and substitutes a degraded local artifact when the backend fails.
package ai

import (
	"context"
	"fmt"

	"T2V/pkg/config"
	"T2V/pkg/render"
)

// ProviderError marks a failed backend call: timeout, non-2xx response, or
// an empty result. The pipeline recovers by falling back to a local artifact
// so the job continues.
type ProviderError struct {
	Capability string
	Backend    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Capability, e.Backend, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ImageProvider generates one image for a prepared prompt at outputPath.
type ImageProvider interface {
	Generate(ctx context.Context, prompt, outputPath string) error
}

// VoiceProvider synthesizes speech for text at outputPath and reports the
// clip duration in seconds.
type VoiceProvider interface {
	Synthesize(ctx context.Context, text, voiceID, outputPath string) (float64, error)
}

// NewImageProvider maps the configured backend name to an implementation.
func NewImageProvider(cfg *config.Config, runner render.Runner) (ImageProvider, error) {
	switch cfg.ImageBackend {
	case "ark":
		return NewArkImage(cfg.ArkAPIKey, cfg.ArkImageModel, cfg.ImageTimeout), nil
	case "sdapi":
		return NewSDAPIImage(cfg.SDAPIURL, cfg.ImageTimeout), nil
	default:
		return nil, fmt.Errorf("unknown image backend %q", cfg.ImageBackend)
	}
}

// NewVoiceProvider maps the configured backend name to an implementation.
func NewVoiceProvider(cfg *config.Config, runner render.Runner) (VoiceProvider, error) {
	switch cfg.VoiceBackend {
	case "elevenlabs":
		return NewElevenLabsVoice(cfg.ElevenLabsAPIKey, cfg.VoiceTimeout, runner), nil
	default:
		return nil, fmt.Errorf("unknown voice backend %q", cfg.VoiceBackend)
	}
}
