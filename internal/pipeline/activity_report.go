package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/internal/repositories"
	"github.com/alimgiray/gh-activity-report/internal/services"
	"github.com/alimgiray/gh-activity-report/internal/workers"
	"github.com/alimgiray/gh-activity-report/pkg/config"
	"github.com/alimgiray/gh-activity-report/pkg/database"
	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

// ErrNoTarget is returned when neither an organization nor a user was given
var ErrNoTarget = errors.New("an organization or a user is required")

// Request selects what one run reports on
type Request struct {
	Org    string
	User   string
	Window models.Window
}

// Result summarizes a finished run
type Result struct {
	RunID         string
	Owner         string
	Repositories  int
	Fetched       models.FetchTotals
	OutsideWindow int
	Rows          int
	Users         int
	Files         []string
	Duration      time.Duration
}

// ActivityReportService runs fetch, filter, aggregate and write for one request
type ActivityReportService struct {
	cfg           *config.Config
	githubService *services.GitHubService
}

// New builds the GitHub client from the configured token
func New(ctx context.Context, cfg *config.Config) (*ActivityReportService, error) {
	client, err := services.NewGitHubClient(ctx, cfg.GitHub.Token, cfg.GitHub.BaseURL)
	if err != nil {
		return nil, err
	}
	retrier := services.NewRetrier(RetryPolicy(cfg.Fetch))
	return NewActivityReportService(cfg, services.NewGitHubService(client, retrier, cfg.Fetch.PerPage)), nil
}

func NewActivityReportService(cfg *config.Config, githubService *services.GitHubService) *ActivityReportService {
	return &ActivityReportService{cfg: cfg, githubService: githubService}
}

// RetryPolicy maps the fetch settings onto the retry driver
func RetryPolicy(fetch config.FetchConfig) services.RetryPolicy {
	policy := services.DefaultRetryPolicy()
	policy.MaxRetries = fetch.MaxRetries
	if fetch.RetryBaseDelay > 0 {
		policy.BaseDelay = fetch.RetryBaseDelay
	}
	policy.MaxRateLimitWaits = fetch.MaxRateLimitWaits
	if fetch.RateLimitFallbackWait > 0 {
		policy.FallbackWait = fetch.RateLimitFallbackWait
	}
	if fetch.RateLimitMaxWait > 0 {
		policy.MaxWait = fetch.RateLimitMaxWait
	}
	return policy
}

// Run executes one report. Any fetch or write failure aborts the run.
func (s *ActivityReportService) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	result := &Result{RunID: uuid.New().String()}

	owner, isOrg := req.Org, true
	if owner == "" {
		owner, isOrg = req.User, false
	}
	if owner == "" {
		return nil, ErrNoTarget
	}
	result.Owner = owner

	log := logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"owner":  owner,
		"window": req.Window.String(),
	})
	log.Info("Starting activity report")

	defer s.githubService.HTTPClient().CloseIdleConnections()

	include, err := s.resolveUsers(ctx, req, owner, isOrg)
	if err != nil {
		return nil, err
	}

	repos, err := s.resolveRepositories(ctx, owner, isOrg)
	if err != nil {
		return nil, err
	}
	result.Repositories = len(repos)
	log.WithField("repositories", len(repos)).Info("Repositories resolved")

	db, err := database.Open(s.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	staging := services.NewStagingService(db)
	jobRepo := repositories.NewJobRepository(db)
	manager := workers.NewWorkerManager(s.cfg.Fetch.Workers, jobRepo, func(workerID string) workers.Worker {
		return workers.NewRepositoryWorker(workerID, s.githubService, staging, req.Window)
	})

	jobs := make([]*models.Job, 0, len(repos))
	for _, repo := range repos {
		job := models.NewJob(owner, repo)
		if err := jobRepo.Create(job); err != nil {
			return nil, fmt.Errorf("failed to create fetch job for %s: %w", job.FullName(), err)
		}
		jobs = append(jobs, job)
	}

	result.Fetched, err = manager.Run(ctx, jobs)
	if err != nil {
		logFailedJobs(log, jobRepo)
		return nil, err
	}

	records, err := staging.Load()
	if err != nil {
		return nil, err
	}

	monthly := services.NewMonthlyStatisticsService(req.Window)
	result.OutsideWindow = addInWindow(monthly, req.Window, records)

	rows := monthly.Build(services.NewUserFilter(include, s.cfg.Report.ExcludeUsers))
	summaries := services.NewOrgStatisticsService().Summarize(rows)
	result.Rows = len(rows)
	result.Users = len(summaries)

	report := services.NewReportService(s.cfg.Report.OutputDir, owner, s.cfg.Report.WriteXLSX)
	result.Files, err = report.Write(rows, summaries)
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(started)
	log.WithFields(logrus.Fields{
		"pull_requests":  result.Fetched.PullRequests,
		"reviews":        result.Fetched.Reviews,
		"comments":       result.Fetched.Comments,
		"skipped":        result.Fetched.Skipped,
		"outside_window": result.OutsideWindow,
		"rows":           result.Rows,
		"users":          result.Users,
		"files":          len(result.Files),
		"duration":       result.Duration.String(),
	}).Info("Activity report written")

	return result, nil
}

// resolveUsers returns the logins that get rows, nil meaning every author seen.
// An explicit user wins over configured users, which win over org membership.
func (s *ActivityReportService) resolveUsers(ctx context.Context, req Request, owner string, isOrg bool) ([]string, error) {
	if req.User != "" {
		return []string{req.User}, nil
	}
	if len(s.cfg.Report.Users) > 0 {
		return s.cfg.Report.Users, nil
	}
	if !isOrg {
		return nil, nil
	}

	members, err := s.githubService.ListOrgMembers(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		logger.WithField("org", owner).Warn("No visible org members, reporting every author")
		return nil, nil
	}
	return members, nil
}

func (s *ActivityReportService) resolveRepositories(ctx context.Context, owner string, isOrg bool) ([]string, error) {
	excluded := make(map[string]bool, len(s.cfg.Report.ExcludeRepositories))
	for _, repo := range s.cfg.Report.ExcludeRepositories {
		excluded[strings.ToLower(strings.TrimSpace(repo))] = true
	}

	limit := s.cfg.Fetch.MaxRepositories
	if len(excluded) > 0 && limit > 0 {
		// excluded repositories must not use up the limit
		limit += len(excluded)
	}

	all, err := s.githubService.ListRepositories(ctx, owner, isOrg, limit)
	if err != nil {
		return nil, err
	}

	repos := make([]string, 0, len(all))
	for _, repo := range all {
		if excluded[strings.ToLower(repo)] {
			continue
		}
		repos = append(repos, repo)
	}
	if n := s.cfg.Fetch.MaxRepositories; n > 0 && len(repos) > n {
		repos = repos[:n]
	}
	return repos, nil
}

// addInWindow feeds the aggregator with records inside the window and returns how many were left out
func addInWindow(monthly *services.MonthlyStatisticsService, window models.Window, records *services.StagedRecords) int {
	outside := 0
	for _, pr := range records.PullRequests {
		if !window.ContainsPullRequest(pr) {
			outside++
			continue
		}
		monthly.AddPullRequest(pr)
	}
	for _, review := range records.Reviews {
		if !window.ContainsReview(review) {
			outside++
			continue
		}
		monthly.AddReview(review)
	}
	for _, comment := range records.Comments {
		if !window.ContainsComment(comment) {
			outside++
			continue
		}
		monthly.AddComment(comment)
	}
	return outside
}

func logFailedJobs(log *logrus.Entry, jobRepo *repositories.JobRepository) {
	failed, err := jobRepo.GetByStatus(models.JobStatusFailed)
	if err != nil {
		log.WithError(err).Warn("Could not read failed fetch jobs")
		return
	}
	for _, job := range failed {
		entry := log.WithField("repository", job.FullName())
		if job.ErrorMessage != nil {
			entry = entry.WithField("error", *job.ErrorMessage)
		}
		entry.Error("Fetch job failed")
	}
}
