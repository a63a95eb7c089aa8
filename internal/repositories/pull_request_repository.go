package repositories

import (
	"database/sql"
	"sync"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

type PullRequestRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewPullRequestRepository(db *sql.DB) *PullRequestRepository {
	return &PullRequestRepository{db: db}
}

const pullRequestColumns = `
	id, number, repository, author, created_at, updated_at, merged_at,
	additions, deletions, comment_count, review_comment_count, first_review_at
`

// Upsert stores the pull request, replacing an earlier copy with the same GitHub id
func (r *PullRequestRepository) Upsert(pr *models.PullRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO pull_requests (` + pullRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number, repository = excluded.repository, author = excluded.author,
			created_at = excluded.created_at, updated_at = excluded.updated_at, merged_at = excluded.merged_at,
			additions = excluded.additions, deletions = excluded.deletions,
			comment_count = excluded.comment_count, review_comment_count = excluded.review_comment_count,
			first_review_at = excluded.first_review_at
	`

	_, err := r.db.Exec(query,
		pr.ID, pr.Number, pr.Repository, pr.Author, pr.CreatedAt, pr.UpdatedAt, pr.MergedAt,
		pr.Additions, pr.Deletions, pr.CommentCount, pr.ReviewCommentCount, pr.FirstReviewAt,
	)

	return err
}

// List returns every staged pull request ordered by repository and number
func (r *PullRequestRepository) List() ([]*models.PullRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + pullRequestColumns + ` FROM pull_requests ORDER BY repository, number`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pullRequests []*models.PullRequest
	for rows.Next() {
		pr, err := scanPullRequest(rows)
		if err != nil {
			return nil, err
		}
		pullRequests = append(pullRequests, pr)
	}

	return pullRequests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPullRequest(row rowScanner) (*models.PullRequest, error) {
	var pr models.PullRequest
	var updatedAt sql.NullTime
	err := row.Scan(
		&pr.ID, &pr.Number, &pr.Repository, &pr.Author, &pr.CreatedAt, &updatedAt, &pr.MergedAt,
		&pr.Additions, &pr.Deletions, &pr.CommentCount, &pr.ReviewCommentCount, &pr.FirstReviewAt,
	)
	if err != nil {
		return nil, err
	}

	pr.CreatedAt = pr.CreatedAt.UTC()
	if updatedAt.Valid {
		pr.UpdatedAt = updatedAt.Time.UTC()
	}
	if pr.MergedAt != nil {
		merged := pr.MergedAt.UTC()
		pr.MergedAt = &merged
	}
	if pr.FirstReviewAt != nil {
		first := pr.FirstReviewAt.UTC()
		pr.FirstReviewAt = &first
	}

	return &pr, nil
}
