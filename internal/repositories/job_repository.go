package repositories

import (
	"database/sql"
	"sync"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

// JobRepository tracks fetch jobs of the current run
type JobRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
	id, owner, repository, status, error_message, worker_id,
	pull_requests, reviews, comments, skipped, pages,
	started_at, completed_at, created_at
`

// Create creates a new job
func (r *JobRepository) Create(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO fetch_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.Owner,
		job.Repository,
		job.Status,
		job.ErrorMessage,
		job.WorkerID,
		job.Totals.PullRequests,
		job.Totals.Reviews,
		job.Totals.Comments,
		job.Totals.Skipped,
		job.Totals.Pages,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
	)
	return err
}

// Update updates status, totals and timestamps of a job
func (r *JobRepository) Update(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE fetch_jobs
		SET status = ?, error_message = ?, worker_id = ?,
			pull_requests = ?, reviews = ?, comments = ?, skipped = ?, pages = ?,
			started_at = ?, completed_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		job.Status,
		job.ErrorMessage,
		job.WorkerID,
		job.Totals.PullRequests,
		job.Totals.Reviews,
		job.Totals.Comments,
		job.Totals.Skipped,
		job.Totals.Pages,
		job.StartedAt,
		job.CompletedAt,
		job.ID,
	)
	return err
}

// GetByStatus retrieves jobs with the given status ordered by repository
func (r *JobRepository) GetByStatus(status models.JobStatus) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`SELECT `+jobColumns+` FROM fetch_jobs WHERE status = ? ORDER BY owner, repository`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}
	var status string
	err := row.Scan(
		&job.ID,
		&job.Owner,
		&job.Repository,
		&status,
		&job.ErrorMessage,
		&job.WorkerID,
		&job.Totals.PullRequests,
		&job.Totals.Reviews,
		&job.Totals.Comments,
		&job.Totals.Skipped,
		&job.Totals.Pages,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	return job, nil
}
