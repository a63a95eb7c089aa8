package models

import (
	"errors"
	"time"
)

// UnknownCount marks a summary count the API did not report
const UnknownCount = -1

// PullRequest represents a GitHub pull request as seen during one report run
type PullRequest struct {
	ID                 int64      `json:"id" db:"id"`
	Number             int        `json:"number" db:"number"`
	Repository         string     `json:"repository" db:"repository"`
	Author             string     `json:"author" db:"author"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	MergedAt           *time.Time `json:"merged_at" db:"merged_at"`
	Additions          int        `json:"additions" db:"additions"`
	Deletions          int        `json:"deletions" db:"deletions"`
	CommentCount       int        `json:"comment_count" db:"comment_count"`
	ReviewCommentCount int        `json:"review_comment_count" db:"review_comment_count"`
	FirstReviewAt      *time.Time `json:"first_review_at" db:"first_review_at"` // earliest review on the PR, any reviewer
}

// Validate reports records that cannot be aggregated
func (pr *PullRequest) Validate() error {
	if pr.ID == 0 {
		return errors.New("pull request ID is required")
	}
	if pr.Author == "" {
		return errors.New("pull request author is required")
	}
	if pr.Repository == "" {
		return errors.New("pull request repository is required")
	}
	if pr.CreatedAt.IsZero() {
		return errors.New("pull request creation time is required")
	}
	if pr.Additions < 0 || pr.Deletions < 0 {
		return errors.New("pull request line counts cannot be negative")
	}
	return nil
}

// IsMerged reports whether the pull request has a merge timestamp
func (pr *PullRequest) IsMerged() bool {
	return pr.MergedAt != nil && !pr.MergedAt.IsZero()
}

// MergeTimeHours returns hours from the first review to the merge.
// ok is false when the PR is unmerged or had no review at or before the merge.
func (pr *PullRequest) MergeTimeHours() (hours float64, ok bool) {
	if !pr.IsMerged() || pr.FirstReviewAt == nil {
		return 0, false
	}
	if pr.FirstReviewAt.After(*pr.MergedAt) {
		return 0, false
	}
	return pr.MergedAt.Sub(*pr.FirstReviewAt).Hours(), true
}
