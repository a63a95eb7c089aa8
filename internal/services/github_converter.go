package services

import (
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

// ToPullRequest converts a listed or fetched GitHub pull request.
// Summary counts stay unknown unless the payload came from a single-PR fetch.
func ToPullRequest(repo string, ghPR *github.PullRequest) (*models.PullRequest, error) {
	pr := &models.PullRequest{
		ID:                 ghPR.GetID(),
		Number:             ghPR.GetNumber(),
		Repository:         repo,
		Author:             ghPR.GetUser().GetLogin(),
		CreatedAt:          utc(ghPR.GetCreatedAt().Time),
		UpdatedAt:          utc(ghPR.GetUpdatedAt().Time),
		CommentCount:       models.UnknownCount,
		ReviewCommentCount: models.UnknownCount,
	}

	if ghPR.MergedAt != nil && !ghPR.MergedAt.IsZero() {
		merged := utc(ghPR.MergedAt.Time)
		pr.MergedAt = &merged
	}

	ApplyPullRequestDetail(pr, ghPR)

	if err := pr.Validate(); err != nil {
		return nil, err
	}
	return pr, nil
}

// ApplyPullRequestDetail copies the counts only present on a single-PR response
func ApplyPullRequestDetail(pr *models.PullRequest, detail *github.PullRequest) {
	if detail.Additions != nil {
		pr.Additions = detail.GetAdditions()
	}
	if detail.Deletions != nil {
		pr.Deletions = detail.GetDeletions()
	}
	if detail.Comments != nil {
		pr.CommentCount = detail.GetComments()
	}
	if detail.ReviewComments != nil {
		pr.ReviewCommentCount = detail.GetReviewComments()
	}
	if pr.MergedAt == nil && detail.MergedAt != nil && !detail.MergedAt.IsZero() {
		merged := utc(detail.MergedAt.Time)
		pr.MergedAt = &merged
	}
}

// ToReview converts a review. Pending reviews have no submission time and are rejected.
func ToReview(pr *models.PullRequest, ghReview *github.PullRequestReview) (*models.PRReview, error) {
	review := &models.PRReview{
		ID:                ghReview.GetID(),
		PullRequestID:     pr.ID,
		Repository:        pr.Repository,
		PullRequestAuthor: pr.Author,
		Reviewer:          ghReview.GetUser().GetLogin(),
		State:             ghReview.GetState(),
		SubmittedAt:       utc(ghReview.GetSubmittedAt().Time),
	}

	if err := review.Validate(); err != nil {
		return nil, err
	}
	return review, nil
}

// ToReviewComment converts a diff comment
func ToReviewComment(pr *models.PullRequest, ghComment *github.PullRequestComment) (*models.ReviewComment, error) {
	comment := &models.ReviewComment{
		Kind:              models.CommentKindReview,
		ID:                ghComment.GetID(),
		PullRequestID:     pr.ID,
		Repository:        pr.Repository,
		PullRequestAuthor: pr.Author,
		Author:            ghComment.GetUser().GetLogin(),
		CreatedAt:         utc(ghComment.GetCreatedAt().Time),
	}

	if err := comment.Validate(); err != nil {
		return nil, err
	}
	return comment, nil
}

// ToIssueComment converts a conversation comment
func ToIssueComment(pr *models.PullRequest, ghComment *github.IssueComment) (*models.ReviewComment, error) {
	comment := &models.ReviewComment{
		Kind:              models.CommentKindIssue,
		ID:                ghComment.GetID(),
		PullRequestID:     pr.ID,
		Repository:        pr.Repository,
		PullRequestAuthor: pr.Author,
		Author:            ghComment.GetUser().GetLogin(),
		CreatedAt:         utc(ghComment.GetCreatedAt().Time),
	}

	if err := comment.Validate(); err != nil {
		return nil, err
	}
	return comment, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
