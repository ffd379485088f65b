package worker

import (
	"context"
	"time"

	"T2V/dao/store"
	"T2V/models"

	"go.uber.org/zap"
)

const janitorInterval = time.Minute

// Requeuer re-enqueues a payload for a stalled job, satisfied by
// queue.VideoQueue.
type Requeuer interface {
	Publish(p models.Payload) error
}

// Janitor requeues jobs whose worker stopped heartbeating mid-run, e.g.
// after a crash. It rebuilds the payload from the persisted job record.
type Janitor struct {
	jobs  *store.JobStore
	queue Requeuer
}

func NewJanitor(jobs *store.JobStore, queue Requeuer) *Janitor {
	return &Janitor{jobs: jobs, queue: queue}
}

// Run sweeps once per interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	active, err := j.jobs.ActiveJobs(ctx)
	if err != nil {
		zap.L().Warn("janitor: failed to list active jobs", zap.Error(err))
		return
	}
	for _, jobID := range active {
		alive, err := j.jobs.HasHeartbeat(ctx, jobID)
		if err != nil {
			zap.L().Warn("janitor: heartbeat check failed", zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		if alive {
			continue
		}

		job, err := j.jobs.GetJob(ctx, jobID)
		if err == store.ErrJobNotFound {
			_ = j.jobs.ClearActive(ctx, jobID)
			continue
		}
		if err != nil {
			zap.L().Warn("janitor: failed to load stalled job", zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		if job.Terminal() {
			_ = j.jobs.ClearActive(ctx, jobID)
			continue
		}

		zap.L().Warn("janitor: requeueing stalled job", zap.String("job_id", jobID))
		// drop the dead worker's dedup lock so the redelivery is not skipped
		if err := j.jobs.ReleaseLock(ctx, jobID); err != nil {
			zap.L().Warn("janitor: failed to release stale lock", zap.String("job_id", jobID), zap.Error(err))
		}
		payload := models.Payload{
			JobID:            job.JobID,
			Text:             job.InputText,
			VoiceID:          job.Settings.VoiceID,
			ImageStyle:       job.Settings.ImageStyle,
			MusicEnabled:     job.Settings.MusicEnabled,
			SubtitlesEnabled: job.Settings.SubtitlesEnabled,
		}
		if err := j.queue.Publish(payload); err != nil {
			zap.L().Error("janitor: failed to requeue job", zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		_ = j.jobs.ClearActive(ctx, jobID)
	}
}
