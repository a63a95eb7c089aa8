package models

import (
	"errors"
	"sort"
	"time"
)

// ReviewState values as reported by the GitHub API
const (
	ReviewStateApproved         = "APPROVED"
	ReviewStateCommented        = "COMMENTED"
	ReviewStateChangesRequested = "CHANGES_REQUESTED"
	ReviewStateDismissed        = "DISMISSED"
)

// PRReview represents a submitted pull request review
type PRReview struct {
	ID                int64     `json:"id" db:"id"`
	PullRequestID     int64     `json:"pull_request_id" db:"pull_request_id"`
	Repository        string    `json:"repository" db:"repository"`
	PullRequestAuthor string    `json:"pull_request_author" db:"pull_request_author"`
	Reviewer          string    `json:"reviewer" db:"reviewer"`
	State             string    `json:"state" db:"state"`
	SubmittedAt       time.Time `json:"submitted_at" db:"submitted_at"`
	IsFirstReview     bool      `json:"is_first_review" db:"is_first_review"`
}

// Validate reports records that cannot be aggregated
func (r *PRReview) Validate() error {
	if r.ID == 0 {
		return errors.New("review ID is required")
	}
	if r.PullRequestID == 0 {
		return errors.New("review pull request ID is required")
	}
	if r.Reviewer == "" {
		return errors.New("reviewer login is required")
	}
	if r.SubmittedAt.IsZero() {
		return errors.New("review submission time is required")
	}
	return nil
}

// IsApproval reports whether the review approved the pull request
func (r *PRReview) IsApproval() bool {
	return r.State == ReviewStateApproved
}

// MarkFirstReview flags the earliest review of one pull request and returns its time.
// Ties on SubmittedAt go to the lower ID. Returns nil for an empty slice.
func MarkFirstReview(reviews []*PRReview) *time.Time {
	if len(reviews) == 0 {
		return nil
	}

	sorted := make([]*PRReview, len(reviews))
	copy(sorted, reviews)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SubmittedAt.Equal(sorted[j].SubmittedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	for _, r := range reviews {
		r.IsFirstReview = false
	}
	sorted[0].IsFirstReview = true

	first := sorted[0].SubmittedAt
	return &first
}
