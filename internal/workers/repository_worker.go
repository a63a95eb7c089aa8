package workers

import (
	"context"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/internal/services"
	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

// RepositoryWorker fetches the pull requests of one repository per job together
// with their reviews and comments, and stages them for aggregation.
type RepositoryWorker struct {
	*BaseWorker
	githubService  *services.GitHubService
	stagingService *services.StagingService
	window         models.Window
}

func NewRepositoryWorker(
	workerID string,
	githubService *services.GitHubService,
	stagingService *services.StagingService,
	window models.Window,
) *RepositoryWorker {
	return &RepositoryWorker{
		BaseWorker:     NewBaseWorker(workerID),
		githubService:  githubService,
		stagingService: stagingService,
		window:         window,
	}
}

// ProcessJob walks pull requests most recently updated first and stops as soon
// as one was last updated before the window, since nothing older can intersect it.
func (w *RepositoryWorker) ProcessJob(ctx context.Context, job *models.Job) error {
	log := logger.WithFields(logrus.Fields{
		"worker":     w.WorkerID,
		"job":        job.ID,
		"repository": job.FullName(),
	})
	log.Debugf("Processing repository")

	it := w.githubService.ListPullRequests(job.Owner, job.Repository)
	defer func() { job.Totals.Pages = it.Pages() }()

	for it.Next(ctx) {
		ghPR := it.Value()

		if updated := ghPR.GetUpdatedAt(); !updated.IsZero() && updated.Before(w.window.Start()) {
			log.WithField("pages", it.Pages()).Debugf("Reached pull requests last updated before the window, stopping")
			it.Stop()
			break
		}
		if !ghPR.GetCreatedAt().Before(w.window.End()) {
			// opened after the window, so none of its activity is inside it
			continue
		}

		if err := w.processPullRequest(ctx, job, ghPR); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	w.jobDone()
	log.WithFields(logrus.Fields{
		"pull_requests": job.Totals.PullRequests,
		"reviews":       job.Totals.Reviews,
		"comments":      job.Totals.Comments,
		"skipped":       job.Totals.Skipped,
	}).Info("Repository fetched")
	return nil
}

func (w *RepositoryWorker) processPullRequest(ctx context.Context, job *models.Job, ghPR *github.PullRequest) error {
	pr, err := services.ToPullRequest(job.Repository, ghPR)
	if err != nil {
		w.skip(job, "pull request", ghPR.GetNumber(), err)
		return nil
	}

	// line and comment counts are only on the single pull request payload
	if w.window.ContainsPullRequest(pr) {
		detail, err := w.githubService.GetPullRequest(ctx, job.Owner, job.Repository, pr.Number)
		if err != nil {
			return err
		}
		services.ApplyPullRequestDetail(pr, detail)
	}

	reviews, err := w.fetchReviews(ctx, job, pr)
	if err != nil {
		return err
	}
	pr.FirstReviewAt = models.MarkFirstReview(reviews)

	if err := w.stagingService.StagePullRequest(pr); err != nil {
		return err
	}
	job.Totals.PullRequests++

	for _, review := range reviews {
		if err := w.stagingService.StageReview(review); err != nil {
			return err
		}
		job.Totals.Reviews++
	}

	comments, err := w.fetchComments(ctx, job, pr)
	if err != nil {
		return err
	}
	for _, comment := range comments {
		if err := w.stagingService.StageComment(comment); err != nil {
			return err
		}
		job.Totals.Comments++
	}

	return nil
}

func (w *RepositoryWorker) fetchReviews(ctx context.Context, job *models.Job, pr *models.PullRequest) ([]*models.PRReview, error) {
	it := w.githubService.ListReviews(job.Owner, job.Repository, pr.Number)

	var reviews []*models.PRReview
	for it.Next(ctx) {
		review, err := services.ToReview(pr, it.Value())
		if err != nil {
			w.skip(job, "review", pr.Number, err)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, it.Err()
}

// fetchComments skips a listing when the summary count says it is empty
func (w *RepositoryWorker) fetchComments(ctx context.Context, job *models.Job, pr *models.PullRequest) ([]*models.ReviewComment, error) {
	var comments []*models.ReviewComment

	if pr.ReviewCommentCount != 0 {
		it := w.githubService.ListReviewComments(job.Owner, job.Repository, pr.Number)
		for it.Next(ctx) {
			comment, err := services.ToReviewComment(pr, it.Value())
			if err != nil {
				w.skip(job, "review comment", pr.Number, err)
				continue
			}
			comments = append(comments, comment)
		}
		if err := it.Err(); err != nil {
			return nil, err
		}
	}

	if pr.CommentCount != 0 {
		it := w.githubService.ListIssueComments(job.Owner, job.Repository, pr.Number)
		for it.Next(ctx) {
			comment, err := services.ToIssueComment(pr, it.Value())
			if err != nil {
				w.skip(job, "issue comment", pr.Number, err)
				continue
			}
			comments = append(comments, comment)
		}
		if err := it.Err(); err != nil {
			return nil, err
		}
	}

	return comments, nil
}

func (w *RepositoryWorker) skip(job *models.Job, kind string, number int, err error) {
	job.Totals.Skipped++
	logger.WithFields(logrus.Fields{
		"worker":     w.WorkerID,
		"repository": job.FullName(),
		"number":     number,
	}).WithError(err).Warnf("Skipping malformed %s", kind)
}
