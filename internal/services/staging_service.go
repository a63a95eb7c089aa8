package services

import (
	"database/sql"
	"fmt"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/internal/repositories"
)

// StagedRecords is everything fetched during one run
type StagedRecords struct {
	PullRequests []*models.PullRequest
	Reviews      []*models.PRReview
	Comments     []*models.ReviewComment
}

// StagingService keeps fetched records, one copy per GitHub id, until aggregation
type StagingService struct {
	pullRequestRepo   *repositories.PullRequestRepository
	prReviewRepo      *repositories.PRReviewRepository
	reviewCommentRepo *repositories.ReviewCommentRepository
}

func NewStagingService(db *sql.DB) *StagingService {
	return &StagingService{
		pullRequestRepo:   repositories.NewPullRequestRepository(db),
		prReviewRepo:      repositories.NewPRReviewRepository(db),
		reviewCommentRepo: repositories.NewReviewCommentRepository(db),
	}
}

func (s *StagingService) StagePullRequest(pr *models.PullRequest) error {
	if err := s.pullRequestRepo.Upsert(pr); err != nil {
		return fmt.Errorf("failed to stage pull request %d: %w", pr.ID, err)
	}
	return nil
}

func (s *StagingService) StageReview(review *models.PRReview) error {
	if err := s.prReviewRepo.Upsert(review); err != nil {
		return fmt.Errorf("failed to stage review %d: %w", review.ID, err)
	}
	return nil
}

func (s *StagingService) StageComment(comment *models.ReviewComment) error {
	if err := s.reviewCommentRepo.Upsert(comment); err != nil {
		return fmt.Errorf("failed to stage %s comment %d: %w", comment.Kind, comment.ID, err)
	}
	return nil
}

// Load reads back every staged record
func (s *StagingService) Load() (*StagedRecords, error) {
	pullRequests, err := s.pullRequestRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load staged pull requests: %w", err)
	}

	reviews, err := s.prReviewRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load staged reviews: %w", err)
	}

	comments, err := s.reviewCommentRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load staged comments: %w", err)
	}

	return &StagedRecords{
		PullRequests: pullRequests,
		Reviews:      reviews,
		Comments:     comments,
	}, nil
}
