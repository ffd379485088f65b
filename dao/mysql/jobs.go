package mysql

import (
	"time"

	"T2V/models"

	"github.com/jmoiron/sqlx"
)

type JobArchive struct {
	db *sqlx.DB
}

func NewJobArchive(db *sqlx.DB) *JobArchive {
	return &JobArchive{db: db}
}

// InsertJob writes a terminal job into video_jobs. The Redis record expires
// with its retention TTL; this row is the durable trace.
func (a *JobArchive) InsertJob(job *models.Job) error {
	query := `INSERT INTO video_jobs
		(job_id, status, text, video_url, thumbnail_url, duration, file_size, error_message, processing_time, created_at, completed_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var videoURL, thumbURL string
	var duration float64
	var fileSize int64
	if job.Output != nil {
		videoURL = job.Output.VideoURL
		thumbURL = job.Output.ThumbnailURL
		duration = job.Output.Duration
		fileSize = job.Output.FileSize
	}
	_, err := a.db.Exec(query,
		job.JobID, job.Status, job.InputText,
		videoURL, thumbURL, duration, fileSize,
		job.Error, job.ProcessingTime,
		job.CreatedAt, job.CompletedAt, time.Now(),
	)
	return err
}
