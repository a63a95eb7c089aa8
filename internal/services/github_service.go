package services

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const userAgent = "gh-activity-report/1.0"

// GitHubService issues the paginated REST queries the report needs
type GitHubService struct {
	client  *github.Client
	retrier *Retrier
	perPage int
}

// NewGitHubClient creates a GitHub client authenticated with a static token.
// baseURL targets a GitHub Enterprise Server API when set.
func NewGitHubClient(ctx context.Context, token, baseURL string) (*github.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &AuthError{Reason: "no GitHub token configured (set GH_TOKEN)"}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	client := github.NewClient(tc)
	client.UserAgent = userAgent

	if baseURL != "" {
		return client.WithEnterpriseURLs(baseURL, baseURL)
	}
	return client, nil
}

func NewGitHubService(client *github.Client, retrier *Retrier, perPage int) *GitHubService {
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	return &GitHubService{
		client:  client,
		retrier: retrier,
		perPage: perPage,
	}
}

// ListOrgMembers returns the logins of every member visible to the token
func (s *GitHubService) ListOrgMembers(ctx context.Context, org string) ([]string, error) {
	query := QueryContext{Operation: "list org members", Owner: org}
	it := NewPageIterator(s.retrier, query, func(ctx context.Context, page int) ([]*github.User, *github.Response, error) {
		opts := &github.ListMembersOptions{ListOptions: github.ListOptions{Page: page, PerPage: s.perPage}}
		return s.client.Organizations.ListMembers(ctx, org, opts)
	})

	var members []string
	for it.Next(ctx) {
		if login := it.Value().GetLogin(); login != "" {
			members = append(members, login)
		}
	}
	return members, it.Err()
}

// ListRepositories returns up to limit repository names of owner, most recently pushed first
func (s *GitHubService) ListRepositories(ctx context.Context, owner string, isOrg bool, limit int) ([]string, error) {
	query := QueryContext{Operation: "list repositories", Owner: owner}
	it := NewPageIterator(s.retrier, query, func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
		listOptions := github.ListOptions{Page: page, PerPage: s.perPage}
		if isOrg {
			return s.client.Repositories.ListByOrg(ctx, owner, &github.RepositoryListByOrgOptions{
				Type:        "all",
				Sort:        "pushed",
				Direction:   "desc",
				ListOptions: listOptions,
			})
		}
		return s.client.Repositories.List(ctx, owner, &github.RepositoryListOptions{
			Type:        "owner",
			Sort:        "pushed",
			Direction:   "desc",
			ListOptions: listOptions,
		})
	})

	var repos []*github.Repository
	for it.Next(ctx) {
		repos = append(repos, it.Value())
		if limit > 0 && len(repos) >= limit {
			it.Stop()
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	// the API sort is honored, re-sort in case of equal or missing push times
	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].GetPushedAt().After(repos[j].GetPushedAt().Time)
	})

	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		if name := repo.GetName(); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// ListPullRequests iterates all pull requests of a repository, most recently updated first
func (s *GitHubService) ListPullRequests(owner, repo string) *PageIterator[*github.PullRequest] {
	query := QueryContext{Operation: "list pull requests", Owner: owner, Repository: repo}
	return NewPageIterator(s.retrier, query, func(ctx context.Context, page int) ([]*github.PullRequest, *github.Response, error) {
		opts := &github.PullRequestListOptions{
			State:       "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{Page: page, PerPage: s.perPage},
		}
		return s.client.PullRequests.List(ctx, owner, repo, opts)
	})
}

// GetPullRequest fetches the full pull request, which carries line and comment counts
func (s *GitHubService) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	query := QueryContext{Operation: "get pull request", Owner: owner, Repository: repo, Number: number}

	var pr *github.PullRequest
	err := s.retrier.Do(ctx, query, func(ctx context.Context) AttemptResult {
		var resp *github.Response
		var err error
		pr, resp, err = s.client.PullRequests.Get(ctx, owner, repo, number)
		return ClassifyResponse(resp, err)
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// ListReviews iterates the reviews of one pull request
func (s *GitHubService) ListReviews(owner, repo string, number int) *PageIterator[*github.PullRequestReview] {
	query := QueryContext{Operation: "list reviews", Owner: owner, Repository: repo, Number: number}
	return NewPageIterator(s.retrier, query, func(ctx context.Context, page int) ([]*github.PullRequestReview, *github.Response, error) {
		opts := &github.ListOptions{Page: page, PerPage: s.perPage}
		return s.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
	})
}

// ListReviewComments iterates the diff comments of one pull request
func (s *GitHubService) ListReviewComments(owner, repo string, number int) *PageIterator[*github.PullRequestComment] {
	query := QueryContext{Operation: "list review comments", Owner: owner, Repository: repo, Number: number}
	return NewPageIterator(s.retrier, query, func(ctx context.Context, page int) ([]*github.PullRequestComment, *github.Response, error) {
		opts := &github.PullRequestListCommentsOptions{
			Sort:        "created",
			Direction:   "asc",
			ListOptions: github.ListOptions{Page: page, PerPage: s.perPage},
		}
		return s.client.PullRequests.ListComments(ctx, owner, repo, number, opts)
	})
}

// ListIssueComments iterates the conversation comments of one pull request
func (s *GitHubService) ListIssueComments(owner, repo string, number int) *PageIterator[*github.IssueComment] {
	query := QueryContext{Operation: "list issue comments", Owner: owner, Repository: repo, Number: number}
	return NewPageIterator(s.retrier, query, func(ctx context.Context, page int) ([]*github.IssueComment, *github.Response, error) {
		opts := &github.IssueListCommentsOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: s.perPage},
		}
		return s.client.Issues.ListComments(ctx, owner, repo, number, opts)
	})
}

// HTTPClient exposes the underlying transport so callers can release idle connections
func (s *GitHubService) HTTPClient() *http.Client {
	return s.client.Client()
}
