package models

import (
	"errors"
	"time"
)

// CommentKind separates the two GitHub comment id spaces on a pull request
type CommentKind string

const (
	CommentKindReview CommentKind = "review" // diff comments
	CommentKindIssue  CommentKind = "issue"  // conversation comments
)

// ReviewComment represents a comment left on a pull request
type ReviewComment struct {
	Kind              CommentKind `json:"kind" db:"kind"`
	ID                int64       `json:"id" db:"id"`
	PullRequestID     int64       `json:"pull_request_id" db:"pull_request_id"`
	Repository        string      `json:"repository" db:"repository"`
	PullRequestAuthor string      `json:"pull_request_author" db:"pull_request_author"`
	Author            string      `json:"author" db:"author"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// CommentKey identifies a comment across both kinds
type CommentKey struct {
	Kind CommentKind
	ID   int64
}

// Key returns the deduplication key of the comment
func (c *ReviewComment) Key() CommentKey {
	return CommentKey{Kind: c.Kind, ID: c.ID}
}

// Validate reports records that cannot be aggregated
func (c *ReviewComment) Validate() error {
	if c.ID == 0 {
		return errors.New("comment ID is required")
	}
	if c.Kind != CommentKindReview && c.Kind != CommentKindIssue {
		return errors.New("comment kind is invalid")
	}
	if c.PullRequestID == 0 {
		return errors.New("comment pull request ID is required")
	}
	if c.Author == "" {
		return errors.New("comment author is required")
	}
	if c.CreatedAt.IsZero() {
		return errors.New("comment creation time is required")
	}
	return nil
}
