package models

import (
	"errors"
	"time"
)

// Job status values. A job is terminal once completed or failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrTerminalState is returned by mutators invoked after a job has reached
// completed or failed.
var ErrTerminalState = errors.New("job is in a terminal state")

// Settings are the per-job generation options supplied at submit time.
type Settings struct {
	VoiceID          string `json:"voice_id"`
	ImageStyle       string `json:"image_style"`
	MusicEnabled     bool   `json:"music_enabled"`
	SubtitlesEnabled bool   `json:"subtitles_enabled"`
}

// SceneSummary is the durable per-scene record kept on the job. Image and
// audio artifacts are ephemeral and never persisted.
type SceneSummary struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// Output holds the published result of a completed job.
type Output struct {
	VideoURL     string  `json:"video_url"`
	VideoKey     string  `json:"video_key"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Duration     float64 `json:"duration"`
	FileSize     int64   `json:"file_size"`
	Resolution   string  `json:"resolution"`
}

// Job is the persisted lifecycle record for one text-to-video request.
type Job struct {
	JobID          string         `json:"job_id"`
	InputText      string         `json:"input_text"`
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	CurrentStep    string         `json:"current_step"`
	Scenes         []SceneSummary `json:"scenes,omitempty"`
	Settings       Settings       `json:"settings"`
	Output         *Output        `json:"output,omitempty"`
	Error          string         `json:"error,omitempty"`
	ProcessingTime int64          `json:"processing_time,omitempty"` // seconds
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewJob returns a pending job record.
func NewJob(jobID, inputText string, settings Settings) *Job {
	return &Job{
		JobID:       jobID,
		InputText:   inputText,
		Status:      StatusPending,
		Progress:    0,
		CurrentStep: "queued",
		Settings:    settings,
		CreatedAt:   time.Now(),
	}
}

// Terminal reports whether the job has reached completed or failed.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// SetProcessing moves a pending job to processing. Re-delivery of an
// already-processing job is tolerated; terminal jobs are not.
func (j *Job) SetProcessing() error {
	if j.Terminal() {
		return ErrTerminalState
	}
	j.Status = StatusProcessing
	return nil
}

// ApplyProgress records a progress waypoint. Progress is monotonically
// non-decreasing within one run; writes after a terminal state are rejected.
func (j *Job) ApplyProgress(percent int, step string) error {
	if j.Terminal() {
		return ErrTerminalState
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > j.Progress {
		j.Progress = percent
	}
	j.CurrentStep = step
	return nil
}

// MarkCompleted records the output refs and moves the job to completed.
func (j *Job) MarkCompleted(out Output) error {
	if j.Terminal() {
		return ErrTerminalState
	}
	now := time.Now()
	j.Status = StatusCompleted
	j.Progress = 100
	j.CurrentStep = "completed"
	j.Output = &out
	j.CompletedAt = &now
	j.ProcessingTime = int64(now.Sub(j.CreatedAt).Seconds())
	return nil
}

// MarkFailed records the last fatal error and moves the job to failed.
func (j *Job) MarkFailed(message string) error {
	if j.Terminal() {
		return ErrTerminalState
	}
	now := time.Now()
	j.Status = StatusFailed
	j.CurrentStep = "failed"
	j.Error = message
	j.CompletedAt = &now
	j.ProcessingTime = int64(now.Sub(j.CreatedAt).Seconds())
	return nil
}

// Payload is the enqueue message delivered to workers. JobID doubles as the
// queue dedup key.
type Payload struct {
	JobID            string `json:"job_id"`
	Text             string `json:"text"`
	VoiceID          string `json:"voice_id"`
	ImageStyle       string `json:"image_style"`
	MusicEnabled     bool   `json:"music_enabled"`
	SubtitlesEnabled bool   `json:"subtitles_enabled"`
}
