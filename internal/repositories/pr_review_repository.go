package repositories

import (
	"database/sql"
	"sync"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

type PRReviewRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewPRReviewRepository(db *sql.DB) *PRReviewRepository {
	return &PRReviewRepository{db: db}
}

const reviewColumns = `
	id, pull_request_id, repository, pull_request_author, reviewer, state, submitted_at, is_first_review
`

func (r *PRReviewRepository) Upsert(review *models.PRReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO pr_reviews (` + reviewColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pull_request_id = excluded.pull_request_id, repository = excluded.repository,
			pull_request_author = excluded.pull_request_author, reviewer = excluded.reviewer,
			state = excluded.state, submitted_at = excluded.submitted_at,
			is_first_review = excluded.is_first_review
	`

	_, err := r.db.Exec(query,
		review.ID, review.PullRequestID, review.Repository, review.PullRequestAuthor,
		review.Reviewer, review.State, review.SubmittedAt, review.IsFirstReview,
	)

	return err
}

// List returns every staged review ordered by submission time
func (r *PRReviewRepository) List() ([]*models.PRReview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + reviewColumns + ` FROM pr_reviews ORDER BY submitted_at, id`
	return r.query(query)
}

func (r *PRReviewRepository) query(query string, args ...interface{}) ([]*models.PRReview, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*models.PRReview
	for rows.Next() {
		var review models.PRReview
		err := rows.Scan(
			&review.ID, &review.PullRequestID, &review.Repository, &review.PullRequestAuthor,
			&review.Reviewer, &review.State, &review.SubmittedAt, &review.IsFirstReview,
		)
		if err != nil {
			return nil, err
		}
		review.SubmittedAt = review.SubmittedAt.UTC()
		reviews = append(reviews, &review)
	}

	return reviews, rows.Err()
}
