// Package logic coordinates job state between the Redis store, the optional
// MySQL archive, and live SSE subscribers.
package logic

import (
	"context"
	"encoding/json"

	"T2V/dao/store"
	"T2V/models"
	"T2V/pkg/sse"

	"go.uber.org/zap"
)

// JobService is the single writer for job records. Every state change goes
// through it so the store, archive and event stream stay consistent.
type JobService struct {
	jobs    *store.JobStore
	archive Archiver
	hub     *sse.Hub
}

// Archiver persists terminal jobs durably. Optional.
type Archiver interface {
	InsertJob(job *models.Job) error
}

func NewJobService(jobs *store.JobStore, archive Archiver, hub *sse.Hub) *JobService {
	return &JobService{jobs: jobs, archive: archive, hub: hub}
}

// Create persists a new pending job.
func (s *JobService) Create(ctx context.Context, job *models.Job) error {
	return s.jobs.SaveJob(ctx, job)
}

func (s *JobService) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// SetProcessing moves the job to processing and publishes the change.
func (s *JobService) SetProcessing(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.SetProcessing(); err != nil {
		return nil, err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	s.notify(job)
	return job, nil
}

// UpdateProgress records a progress waypoint. Terminal jobs reject the write.
func (s *JobService) UpdateProgress(ctx context.Context, jobID string, percent int, step string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.ApplyProgress(percent, step); err != nil {
		return err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	s.notify(job)
	return nil
}

// SetScenes persists the per-scene summaries on the job record.
func (s *JobService) SetScenes(ctx context.Context, jobID string, scenes []models.SceneSummary) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		return models.ErrTerminalState
	}
	job.Scenes = scenes
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	s.notify(job)
	return nil
}

// MarkCompleted finalizes a successful job and archives it.
func (s *JobService) MarkCompleted(ctx context.Context, jobID string, out models.Output) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.MarkCompleted(out); err != nil {
		return err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	s.archiveJob(job)
	s.notify(job)
	return nil
}

// MarkFailed finalizes a failed job. Calling it on an already-terminal job is
// a no-op so retry cleanup paths stay idempotent.
func (s *JobService) MarkFailed(ctx context.Context, jobID, message string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.MarkFailed(message); err != nil {
		if err == models.ErrTerminalState {
			return nil
		}
		return err
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	s.archiveJob(job)
	s.notify(job)
	return nil
}

func (s *JobService) archiveJob(job *models.Job) {
	if s.archive == nil {
		return
	}
	if err := s.archive.InsertJob(job); err != nil {
		zap.L().Warn("failed to archive job",
			zap.String("job_id", job.JobID),
			zap.Error(err))
	}
}

func (s *JobService) notify(job *models.Job) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		zap.L().Warn("failed to marshal job event", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	s.hub.PublishTopic(job.JobID, data)
}
