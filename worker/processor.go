// Package worker runs the generation pipeline for dequeued jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"T2V/models"
	"T2V/pkg/render"
	"T2V/pkg/splitter"
	"T2V/pkg/storage"
	"T2V/util"

	"go.uber.org/zap"
)

const heartbeatInterval = 10 * time.Second

// JobTracker is the job state surface the processor drives, satisfied by
// logic.JobService.
type JobTracker interface {
	Get(ctx context.Context, jobID string) (*models.Job, error)
	SetProcessing(ctx context.Context, jobID string) (*models.Job, error)
	UpdateProgress(ctx context.Context, jobID string, percent int, step string) error
	SetScenes(ctx context.Context, jobID string, scenes []models.SceneSummary) error
	MarkCompleted(ctx context.Context, jobID string, out models.Output) error
	MarkFailed(ctx context.Context, jobID, message string) error
}

// Liveness tracks which jobs are actively being worked, satisfied by
// store.JobStore.
type Liveness interface {
	Heartbeat(ctx context.Context, jobID string) error
	MarkActive(ctx context.Context, jobID string) error
	ClearActive(ctx context.Context, jobID string) error
}

// ImageSource produces one still image per scene.
type ImageSource interface {
	SceneImage(ctx context.Context, jobID string, index int, sceneText, style string) (string, error)
}

// AudioSource produces narration audio and its duration per scene.
type AudioSource interface {
	SceneAudio(ctx context.Context, jobID string, index int, text, voiceID string) (string, float64, error)
}

// Renderer assembles scene artifacts into the final video.
type Renderer interface {
	Assemble(ctx context.Context, jobID string, scenes []render.Scene, opts render.Options) (*render.Result, error)
}

type Processor struct {
	jobs      JobTracker
	live      Liveness
	images    ImageSource
	voices    AudioSource
	renderer  Renderer
	publisher storage.Publisher
	ws        *util.Workspace

	// MaxAttempts mirrors the queue retry limit; the job record is only
	// marked failed when the last attempt errors.
	MaxAttempts int
}

func NewProcessor(jobs JobTracker, live Liveness, images ImageSource, voices AudioSource, renderer Renderer, publisher storage.Publisher, ws *util.Workspace, maxAttempts int) *Processor {
	return &Processor{
		jobs:        jobs,
		live:        live,
		images:      images,
		voices:      voices,
		renderer:    renderer,
		publisher:   publisher,
		ws:          ws,
		MaxAttempts: maxAttempts,
	}
}

// Process handles one delivery of a job payload. Errors are returned to the
// queue layer for retry scheduling; the job record is marked failed only on
// the final attempt.
func (p *Processor) Process(ctx context.Context, payload models.Payload, attempt int) error {
	log := zap.L().With(zap.String("job_id", payload.JobID), zap.Int("attempt", attempt))

	job, err := p.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load job record: %w", err)
	}
	if job.Terminal() {
		log.Info("skipping delivery for terminal job", zap.String("status", job.Status))
		return nil
	}
	if _, err := p.jobs.SetProcessing(ctx, payload.JobID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if err := p.live.MarkActive(ctx, payload.JobID); err != nil {
		log.Warn("failed to mark job active", zap.Error(err))
	}
	stopHeartbeat := p.startHeartbeat(payload.JobID)
	defer func() {
		stopHeartbeat()
		if err := p.live.ClearActive(context.Background(), payload.JobID); err != nil {
			log.Warn("failed to clear active mark", zap.Error(err))
		}
		p.ws.CleanupJob(payload.JobID)
	}()

	if err := p.run(ctx, payload, log); err != nil {
		log.Error("job attempt failed", zap.Error(err))
		if attempt >= p.MaxAttempts {
			if ferr := p.jobs.MarkFailed(context.Background(), payload.JobID, err.Error()); ferr != nil {
				log.Error("failed to record job failure", zap.Error(ferr))
			}
		}
		return err
	}
	log.Info("job completed")
	return nil
}

func (p *Processor) run(ctx context.Context, payload models.Payload, log *zap.Logger) error {
	jobID := payload.JobID

	texts := splitter.Split(payload.Text)
	if len(texts) == 0 {
		return errors.New("input text produced no scenes")
	}
	p.progress(ctx, jobID, 10, "splitting_scenes", log)
	log.Info("split input into scenes", zap.Int("count", len(texts)))

	n := len(texts)
	scenes := make([]render.Scene, n)

	p.progress(ctx, jobID, 15, "generating_images", log)
	for i, text := range texts {
		imagePath, err := p.images.SceneImage(ctx, jobID, i, text, payload.ImageStyle)
		if err != nil {
			return fmt.Errorf("scene %d image: %w", i, err)
		}
		scenes[i] = render.Scene{Index: i, Text: text, ImagePath: imagePath}
		p.progress(ctx, jobID, 15+25*(i+1)/n, "generating_images", log)
	}

	p.progress(ctx, jobID, 40, "generating_voice", log)
	summaries := make([]models.SceneSummary, n)
	for i := range scenes {
		audioPath, duration, err := p.voices.SceneAudio(ctx, jobID, i, scenes[i].Text, payload.VoiceID)
		if err != nil {
			return fmt.Errorf("scene %d audio: %w", i, err)
		}
		scenes[i].AudioPath = audioPath
		scenes[i].Duration = duration
		summaries[i] = models.SceneSummary{Index: i, Text: scenes[i].Text, Duration: duration}
		p.progress(ctx, jobID, 40+25*(i+1)/n, "generating_voice", log)
	}
	if err := p.jobs.SetScenes(ctx, jobID, summaries); err != nil {
		log.Warn("failed to persist scene summaries", zap.Error(err))
	}

	p.progress(ctx, jobID, 65, "rendering_video", log)
	result, err := p.renderer.Assemble(ctx, jobID, scenes, render.Options{
		SubtitlesEnabled: payload.SubtitlesEnabled,
		MusicEnabled:     payload.MusicEnabled,
	})
	if err != nil {
		return fmt.Errorf("assemble video: %w", err)
	}

	p.progress(ctx, jobID, 95, "finalizing", log)
	videoKey := fmt.Sprintf("videos/%s/%s_final.mp4", jobID, jobID)
	videoURL, err := p.publisher.Upload(result.VideoPath, videoKey)
	if err != nil {
		return fmt.Errorf("publish video: %w", err)
	}
	thumbKey := fmt.Sprintf("videos/%s/%s_thumb.jpg", jobID, jobID)
	thumbURL, err := p.publisher.Upload(result.ThumbnailPath, thumbKey)
	if err != nil {
		return fmt.Errorf("publish thumbnail: %w", err)
	}

	out := models.Output{
		VideoURL:     videoURL,
		VideoKey:     videoKey,
		ThumbnailURL: thumbURL,
		Duration:     result.Metadata.Duration,
		FileSize:     result.Metadata.FileSize,
		Resolution:   fmt.Sprintf("%dx%d", result.Metadata.Width, result.Metadata.Height),
	}
	if err := p.jobs.MarkCompleted(ctx, jobID, out); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (p *Processor) progress(ctx context.Context, jobID string, percent int, step string, log *zap.Logger) {
	if err := p.jobs.UpdateProgress(ctx, jobID, percent, step); err != nil {
		log.Warn("failed to record progress",
			zap.Int("percent", percent),
			zap.String("step", step),
			zap.Error(err))
	}
}

func (p *Processor) startHeartbeat(jobID string) func() {
	done := make(chan struct{})
	if err := p.live.Heartbeat(context.Background(), jobID); err != nil {
		zap.L().Warn("heartbeat write failed", zap.String("job_id", jobID), zap.Error(err))
	}
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := p.live.Heartbeat(context.Background(), jobID); err != nil {
					zap.L().Warn("heartbeat write failed", zap.String("job_id", jobID), zap.Error(err))
				}
			}
		}
	}()
	return func() { close(done) }
}
