package repositories

import (
	"database/sql"
	"sync"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

type ReviewCommentRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewReviewCommentRepository(db *sql.DB) *ReviewCommentRepository {
	return &ReviewCommentRepository{db: db}
}

const commentColumns = `
	kind, id, pull_request_id, repository, pull_request_author, author, created_at
`

func (r *ReviewCommentRepository) Upsert(comment *models.ReviewComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO review_comments (` + commentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			pull_request_id = excluded.pull_request_id, repository = excluded.repository,
			pull_request_author = excluded.pull_request_author, author = excluded.author,
			created_at = excluded.created_at
	`

	_, err := r.db.Exec(query,
		string(comment.Kind), comment.ID, comment.PullRequestID, comment.Repository,
		comment.PullRequestAuthor, comment.Author, comment.CreatedAt,
	)

	return err
}

// List returns every staged comment ordered by creation time
func (r *ReviewCommentRepository) List() ([]*models.ReviewComment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`SELECT ` + commentColumns + ` FROM review_comments ORDER BY created_at, kind, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.ReviewComment
	for rows.Next() {
		var comment models.ReviewComment
		var kind string
		err := rows.Scan(
			&kind, &comment.ID, &comment.PullRequestID, &comment.Repository,
			&comment.PullRequestAuthor, &comment.Author, &comment.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		comment.Kind = models.CommentKind(kind)
		comment.CreatedAt = comment.CreatedAt.UTC()
		comments = append(comments, &comment)
	}

	return comments, rows.Err()
}
