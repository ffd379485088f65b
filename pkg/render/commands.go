package render

import (
	"fmt"
	"strings"
)

// Output geometry shared by every stage. The concat stage stream-copies, so
// all scene clips must be encoded with identical parameters.
const (
	FrameWidth  = 1080
	FrameHeight = 1920
	PixelFormat = "yuv420p"

	thumbWidth  = 540
	thumbHeight = 960
)

// scaleAndPad fits any input image into the output frame without cropping.
var scaleAndPad = fmt.Sprintf(
	"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
	FrameWidth, FrameHeight, FrameWidth, FrameHeight)

// subtitleStyle: white text, black outline, bottom position.
const subtitleStyle = "FontName=Arial,FontSize=24,PrimaryColour=&H00FFFFFF," +
	"OutlineColour=&H00000000,BorderStyle=3,Outline=2,Shadow=1,MarginV=50,Alignment=2"

func preamble() []string {
	return []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
}

// SceneClipArgs builds the arguments for rendering one scene: the image
// looped for the duration of the audio track.
func SceneClipArgs(imagePath, audioPath, outputPath string) []string {
	args := preamble()
	return append(args,
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", PixelFormat,
		"-shortest",
		"-vf", scaleAndPad,
		outputPath,
	)
}

// ConcatArgs joins the clips listed in listPath with a stream copy.
func ConcatArgs(listPath, outputPath string) []string {
	args := preamble()
	return append(args,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	)
}

// SubtitleArgs burns the SRT file into the video.
func SubtitleArgs(videoPath, srtPath, outputPath string) []string {
	args := preamble()
	return append(args,
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles='%s':force_style='%s'", escapeFilterPath(srtPath), subtitleStyle),
		"-c:a", "copy",
		outputPath,
	)
}

// MusicArgs mixes a looping music track under the narration at low volume
// with a fade-out anchored near the end of the video.
func MusicArgs(videoPath, musicPath, outputPath string, volume, fadeStart float64) []string {
	filter := fmt.Sprintf(
		"[1:a]volume=%.2f,afade=t=out:st=%.2f:d=3[music];"+
			"[0:a][music]amix=inputs=2:duration=first:dropout_transition=2[a]",
		volume, fadeStart)

	args := preamble()
	return append(args,
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[a]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	)
}

// OptimizeArgs re-encodes for progressive streaming playback.
func OptimizeArgs(inputPath, outputPath string) []string {
	args := preamble()
	return append(args,
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outputPath,
	)
}

// ThumbnailArgs extracts one downscaled poster frame.
func ThumbnailArgs(videoPath, outputPath string, timestamp float64) []string {
	args := preamble()
	return append(args,
		"-ss", fmt.Sprintf("%.2f", timestamp),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", thumbWidth, thumbHeight),
		outputPath,
	)
}

// PlaceholderImageArgs renders a solid-fill frame with the scene text
// overlaid, used when an image backend fails.
func PlaceholderImageArgs(text, outputPath string) []string {
	draw := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=48:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawText(text))

	args := preamble()
	return append(args,
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=0x1a1a2e:s=%dx%d", FrameWidth, FrameHeight),
		"-vf", draw,
		"-frames:v", "1",
		outputPath,
	)
}

// SilentAudioArgs produces a silent clip of the given duration, used when a
// voice backend fails.
func SilentAudioArgs(duration float64, outputPath string) []string {
	args := preamble()
	return append(args,
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", fmt.Sprintf("%.1f", duration),
		outputPath,
	)
}

// TranscodeToWavArgs converts a downloaded voice clip to the uniform WAV
// format used by the scene renderer.
func TranscodeToWavArgs(inputPath, outputPath string) []string {
	args := preamble()
	return append(args,
		"-i", inputPath,
		"-ar", "44100",
		"-ac", "2",
		outputPath,
	)
}

// escapeDrawText escapes characters that terminate or corrupt a drawtext
// filter expression.
func escapeDrawText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

// escapeFilterPath escapes a file path for use inside a filter argument.
func escapeFilterPath(s string) string {
	r := strings.NewReplacer(
		`\`, `/`,
		`'`, `\'`,
		`:`, `\:`,
	)
	return r.Replace(s)
}
