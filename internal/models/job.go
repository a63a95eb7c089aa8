package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a fetch job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// FetchTotals counts what a job staged and what it had to skip
type FetchTotals struct {
	PullRequests int `json:"pull_requests"`
	Reviews      int `json:"reviews"`
	Comments     int `json:"comments"`
	Skipped      int `json:"skipped"`
	Pages        int `json:"pages"`
}

// Add sums other into t
func (t *FetchTotals) Add(other FetchTotals) {
	t.PullRequests += other.PullRequests
	t.Reviews += other.Reviews
	t.Comments += other.Comments
	t.Skipped += other.Skipped
	t.Pages += other.Pages
}

// Job fetches the pull request activity of one repository
type Job struct {
	ID           string      `json:"id"`
	Owner        string      `json:"owner"`
	Repository   string      `json:"repository"`
	Status       JobStatus   `json:"status"`
	ErrorMessage *string     `json:"error_message"`
	WorkerID     *string     `json:"worker_id"`
	Totals       FetchTotals `json:"totals"`
	StartedAt    *time.Time  `json:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewJob creates a new pending Job with a generated UUID
func NewJob(owner, repository string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		Owner:      owner,
		Repository: repository,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
	}
}

// FullName returns owner/repository
func (j *Job) FullName() string {
	return j.Owner + "/" + j.Repository
}

// IsCompleted checks if the job is completed
func (j *Job) IsCompleted() bool {
	return j.Status == JobStatusCompleted
}

// IsFailed checks if the job is failed
func (j *Job) IsFailed() bool {
	return j.Status == JobStatusFailed
}

// MarkStarted marks the job as started by workerID
func (j *Job) MarkStarted(workerID string) {
	now := time.Now()
	j.Status = JobStatusInProgress
	j.WorkerID = &workerID
	j.StartedAt = &now
}

// MarkCompleted marks the job as completed
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
}

// MarkFailed marks the job as failed with err
func (j *Job) MarkFailed(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	if err != nil {
		message := err.Error()
		j.ErrorMessage = &message
	}
}

// Duration is the wall time between start and completion, zero while running
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
