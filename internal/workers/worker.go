package workers

import (
	"context"
	"sync/atomic"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

// Worker interface defines the contract for fetch workers
type Worker interface {
	// ProcessJob fetches and stages everything the job covers
	ProcessJob(ctx context.Context, job *models.Job) error

	// GetWorkerID returns the unique identifier for this worker
	GetWorkerID() string
}

// BaseWorker provides common functionality for all workers
type BaseWorker struct {
	WorkerID string
	jobsDone atomic.Int64
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(workerID string) *BaseWorker {
	return &BaseWorker{WorkerID: workerID}
}

// GetWorkerID returns the worker's unique identifier
func (w *BaseWorker) GetWorkerID() string {
	return w.WorkerID
}

// JobsDone returns how many jobs the worker completed
func (w *BaseWorker) JobsDone() int64 {
	return w.jobsDone.Load()
}

func (w *BaseWorker) jobDone() {
	w.jobsDone.Add(1)
}
