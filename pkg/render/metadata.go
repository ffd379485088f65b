package render

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Metadata holds the properties read back from a finished artifact.
type Metadata struct {
	Width    int
	Height   int
	Duration float64
	FileSize int64
}

type probeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Duration string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// ProbeVideo reads duration, resolution and file size from the artifact.
// Probe failure is tolerated with frame-size defaults, matching the rest of
// the chain's availability-over-fidelity stance.
func ProbeVideo(ctx context.Context, runner Runner, path string) Metadata {
	stdout, stderr, err := runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration",
		"-show_entries", "format=duration,size",
		"-of", "json",
		path,
	)
	if err != nil {
		zap.L().Warn("ffprobe failed", zap.String("path", path),
			zap.String("stderr", stderr), zap.Error(err))
		return Metadata{Width: FrameWidth, Height: FrameHeight}
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		zap.L().Warn("ffprobe output unparseable", zap.String("path", path), zap.Error(err))
		return Metadata{Width: FrameWidth, Height: FrameHeight}
	}

	md := Metadata{Width: FrameWidth, Height: FrameHeight}
	if len(out.Streams) > 0 {
		if out.Streams[0].Width > 0 {
			md.Width = out.Streams[0].Width
		}
		if out.Streams[0].Height > 0 {
			md.Height = out.Streams[0].Height
		}
		md.Duration, _ = strconv.ParseFloat(out.Streams[0].Duration, 64)
	}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d > 0 {
		md.Duration = d
	}
	md.FileSize, _ = strconv.ParseInt(out.Format.Size, 10, 64)
	return md
}

// ProbeAudioDuration returns the duration of an audio file in seconds, or an
// error when the file cannot be probed.
func ProbeAudioDuration(ctx context.Context, runner Runner, path string) (float64, error) {
	stdout, _, err := runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(stdout), 64)
}
