package workers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

// JobStore persists job status changes
type JobStore interface {
	Update(job *models.Job) error
}

// WorkerManager runs a bounded pool of workers over a fixed list of jobs
type WorkerManager struct {
	workers []Worker
	store   JobStore
}

// NewWorkerManager creates a manager with count workers built by newWorker.
// store may be nil.
func NewWorkerManager(count int, store JobStore, newWorker func(workerID string) Worker) *WorkerManager {
	if count < 1 {
		count = 1
	}
	wm := &WorkerManager{workers: make([]Worker, 0, count), store: store}
	for i := 0; i < count; i++ {
		wm.workers = append(wm.workers, newWorker(fmt.Sprintf("fetch-%d", i+1)))
	}
	return wm
}

// Workers returns the pool
func (wm *WorkerManager) Workers() []Worker {
	return wm.workers
}

// Run hands every job to the first idle worker and waits for all of them.
// The first failing job cancels the others and its error is returned.
func (wm *WorkerManager) Run(ctx context.Context, jobs []*models.Job) (models.FetchTotals, error) {
	var totals models.FetchTotals
	if len(jobs) == 0 {
		return totals, nil
	}

	workers := wm.workers
	if len(workers) > len(jobs) {
		workers = workers[:len(jobs)]
	}
	logger.WithFields(logrus.Fields{
		"workers": len(workers),
		"jobs":    len(jobs),
	}).Info("Starting fetch workers")

	queue := make(chan *models.Job)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for _, worker := range workers {
		worker := worker
		g.Go(func() error {
			for job := range queue {
				if gctx.Err() != nil {
					return nil
				}
				job.MarkStarted(worker.GetWorkerID())
				wm.save(job)
				if err := worker.ProcessJob(gctx, job); err != nil {
					job.MarkFailed(err)
					wm.save(job)
					logger.WithFields(logrus.Fields{
						"worker":     worker.GetWorkerID(),
						"repository": job.FullName(),
					}).WithError(err).Warn("Fetch job failed")
					return err
				}
				job.MarkCompleted()
				wm.save(job)
				logger.WithFields(logrus.Fields{
					"worker":     worker.GetWorkerID(),
					"repository": job.FullName(),
					"duration":   job.Duration().String(),
				}).Debugf("Fetch job completed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return totals, err
	}
	// cancelled between jobs, some repositories were never fetched
	if err := ctx.Err(); err != nil {
		return totals, err
	}

	for _, job := range jobs {
		totals.Add(job.Totals)
	}
	return totals, nil
}

// save records the job state; a failed write only loses bookkeeping
func (wm *WorkerManager) save(job *models.Job) {
	if wm.store == nil {
		return
	}
	if err := wm.store.Update(job); err != nil {
		logger.WithField("job", job.ID).WithError(err).Warn("Error updating job")
	}
}
