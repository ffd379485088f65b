// Package store persists job records and coordination keys in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"T2V/models"

	"github.com/go-redis/redis/v8"
)

// ErrJobNotFound is returned when no record exists for a job ID.
var ErrJobNotFound = errors.New("job not found")

const (
	jobKeyPrefix       = "job:"
	lockKeyPrefix      = "job:lock:"
	heartbeatKeyPrefix = "job:heartbeat:"
	activeSetKey       = "jobs:active"

	// Retention after a job reaches a terminal state.
	CompletedRetention = 24 * time.Hour
	FailedRetention    = 7 * 24 * time.Hour

	lockTTL      = 30 * time.Minute
	heartbeatTTL = 30 * time.Second
)

type JobStore struct {
	client *redis.Client
}

func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{client: client}
}

// NewClient dials Redis and verifies the connection.
func NewClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// SaveJob writes the job record. Terminal jobs get a retention TTL so Redis
// expires them on its own; live jobs persist until they finish.
func (s *JobStore) SaveJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ttl := time.Duration(0)
	switch job.Status {
	case models.StatusCompleted:
		ttl = CompletedRetention
	case models.StatusFailed:
		ttl = FailedRetention
	}
	return s.client.Set(ctx, jobKeyPrefix+job.JobID, data, ttl).Err()
}

func (s *JobStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// TryAcquireLock takes the per-job processing lock. A false return means
// another worker already holds the job.
func (s *JobStore) TryAcquireLock(ctx context.Context, jobID string) (bool, error) {
	return s.client.SetNX(ctx, lockKeyPrefix+jobID, 1, lockTTL).Result()
}

func (s *JobStore) ReleaseLock(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, lockKeyPrefix+jobID).Err()
}

// Heartbeat refreshes the liveness key the janitor checks for stalled jobs.
func (s *JobStore) Heartbeat(ctx context.Context, jobID string) error {
	return s.client.Set(ctx, heartbeatKeyPrefix+jobID, time.Now().Unix(), heartbeatTTL).Err()
}

func (s *JobStore) HasHeartbeat(ctx context.Context, jobID string) (bool, error) {
	n, err := s.client.Exists(ctx, heartbeatKeyPrefix+jobID).Result()
	return n > 0, err
}

// MarkActive records that a worker started processing jobID.
func (s *JobStore) MarkActive(ctx context.Context, jobID string) error {
	return s.client.SAdd(ctx, activeSetKey, jobID).Err()
}

func (s *JobStore) ClearActive(ctx context.Context, jobID string) error {
	return s.client.SRem(ctx, activeSetKey, jobID).Err()
}

func (s *JobStore) ActiveJobs(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, activeSetKey).Result()
}
