package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"T2V/pkg/render"
)

// Friendly voice names accepted at the API surface, mapped to concrete
// ElevenLabs voice IDs.
var voiceAliases = map[string]string{
	"default": "21m00Tcm4TlvDq8ikWAM",
	"male":    "ErXwobaYiN019PkySvjV",
	"female":  "21m00Tcm4TlvDq8ikWAM",
	"british": "pNInz6obpgDQGcFmaJgB",
}

// minVoiceDuration is the floor applied to every synthesized clip.
const minVoiceDuration = 2.0

// ElevenLabsVoice synthesizes narration through the ElevenLabs TTS API. The
// returned MP3 is transcoded to the uniform WAV format through the encoder
// runner.
type ElevenLabsVoice struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	runner  render.Runner
}

func NewElevenLabsVoice(apiKey string, timeout time.Duration, runner render.Runner) *ElevenLabsVoice {
	return &ElevenLabsVoice{
		apiKey:  apiKey,
		baseURL: "https://api.elevenlabs.io/v1",
		httpc:   &http.Client{Timeout: timeout},
		runner:  runner,
	}
}

type elevenLabsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id"`
	VoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	} `json:"voice_settings"`
}

func (v *ElevenLabsVoice) Synthesize(ctx context.Context, text, voiceID, outputPath string) (float64, error) {
	if v.apiKey == "" {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs",
			Err: fmt.Errorf("api key not configured")}
	}

	resolved, ok := voiceAliases[voiceID]
	if !ok {
		if voiceID != "" {
			resolved = voiceID // assume a raw ElevenLabs voice ID
		} else {
			resolved = voiceAliases["default"]
		}
	}

	payload := elevenLabsRequest{Text: text, ModelID: "eleven_monolingual_v1"}
	payload.VoiceSettings.Stability = 0.5
	payload.VoiceSettings.SimilarityBoost = 0.75
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.baseURL+"/text-to-speech/"+resolved, bytes.NewReader(body))
	if err != nil {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs", Err: err}
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", v.apiKey)

	resp, err := v.httpc.Do(req)
	if err != nil {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs",
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	mp3Path := outputPath + ".mp3"
	if err := writeStream(mp3Path, resp.Body); err != nil {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs", Err: err}
	}
	defer os.Remove(mp3Path)

	if _, stderr, err := v.runner.Run(ctx, "ffmpeg", render.TranscodeToWavArgs(mp3Path, outputPath)...); err != nil {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs",
			Err: fmt.Errorf("transcode: %v (%s)", err, stderr)}
	}

	duration, err := render.ProbeAudioDuration(ctx, v.runner, outputPath)
	if err != nil {
		return 0, &ProviderError{Capability: "voice", Backend: "elevenlabs",
			Err: fmt.Errorf("probe duration: %w", err)}
	}
	if duration < minVoiceDuration {
		duration = minVoiceDuration
	}
	return duration, nil
}

func writeStream(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}
