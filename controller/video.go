// Package controller exposes the HTTP surface for submitting and inspecting
// video generation jobs.
package controller

import (
	"net/http"
	"strconv"

	"T2V/dao/store"
	"T2V/logic"
	"T2V/models"
	"T2V/pkg/snowflake"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// CreateVideoRequest is the submission body for POST /api/videos.
type CreateVideoRequest struct {
	Text     string `json:"text" binding:"required,min=10,max=5000"`
	Settings struct {
		VoiceID          string `json:"voice_id"`
		ImageStyle       string `json:"image_style"`
		MusicEnabled     bool   `json:"music_enabled"`
		SubtitlesEnabled bool   `json:"subtitles_enabled"`
	} `json:"settings"`
}

// Enqueuer hands accepted jobs to the queue, satisfied by queue.VideoQueue.
type Enqueuer interface {
	Publish(p models.Payload) error
}

type VideoController struct {
	jobs  *logic.JobService
	queue Enqueuer
}

func NewVideoController(jobs *logic.JobService, queue Enqueuer) *VideoController {
	return &VideoController{jobs: jobs, queue: queue}
}

// SubmitVideo accepts a generation request, persists the pending job and
// enqueues it. Responds 202 with the job ID.
func (vc *VideoController) SubmitVideo(c *gin.Context) {
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Error("submit video with invalid param", zap.Error(err))
		if errs, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": errs.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id, err := snowflake.GetID()
	if err != nil {
		zap.L().Error("failed to generate job id", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate job id"})
		return
	}
	jobID := strconv.FormatUint(id, 10)

	settings := models.Settings{
		VoiceID:          req.Settings.VoiceID,
		ImageStyle:       req.Settings.ImageStyle,
		MusicEnabled:     req.Settings.MusicEnabled,
		SubtitlesEnabled: req.Settings.SubtitlesEnabled,
	}
	job := models.NewJob(jobID, req.Text, settings)
	if err := vc.jobs.Create(c.Request.Context(), job); err != nil {
		zap.L().Error("failed to persist job", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	payload := models.Payload{
		JobID:            jobID,
		Text:             req.Text,
		VoiceID:          settings.VoiceID,
		ImageStyle:       settings.ImageStyle,
		MusicEnabled:     settings.MusicEnabled,
		SubtitlesEnabled: settings.SubtitlesEnabled,
	}
	if err := vc.queue.Publish(payload); err != nil {
		zap.L().Error("failed to enqueue job", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "submitted",
	})
}

// GetVideo returns the current job record, including progress and, once
// completed, the published output.
func (vc *VideoController) GetVideo(c *gin.Context) {
	jobID := c.Param("id")
	job, err := vc.jobs.Get(c.Request.Context(), jobID)
	if err == store.ErrJobNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		zap.L().Error("failed to load job", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, job)
}
