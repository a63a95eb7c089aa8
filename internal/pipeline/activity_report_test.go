package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/internal/services"
	"github.com/alimgiray/gh-activity-report/pkg/config"
)

type route struct {
	body string
	next int
}

func newFakeGitHub(t *testing.T, routes map[string]route) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		rt, ok := routes[r.URL.Path+"?page="+page]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		if rt.next > 0 {
			w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d>; rel="next"`, server.URL, r.URL.Path, rt.next))
		}
		fmt.Fprint(w, rt.body)
	}))
	t.Cleanup(server.Close)
	return server
}

func orgRoutes() map[string]route {
	return map[string]route{
		"/orgs/acme/members?page=1": {body: `[{"login":"alice"},{"login":"bob"}]`},
		"/orgs/acme/repos?page=1": {body: `[
			{"name":"api","pushed_at":"2025-05-20T00:00:00Z"},
			{"name":"legacy","pushed_at":"2025-05-10T00:00:00Z"}
		]`},
		"/repos/acme/api/pulls?page=1": {body: `[
			{"id":300,"number":3,"user":{"login":"alice"},"created_at":"2025-05-10T08:00:00Z","updated_at":"2025-05-12T10:00:00Z","merged_at":"2025-05-12T10:00:00Z"},
			{"id":200,"number":2,"user":{"login":"bob"},"created_at":"2025-04-01T08:00:00Z","updated_at":"2025-05-02T12:00:00Z"}
		]`, next: 2},
		"/repos/acme/api/pulls?page=2": {body: `[
			{"id":100,"number":1,"user":{"login":"bob"},"created_at":"2025-03-01T08:00:00Z","updated_at":"2025-04-15T12:00:00Z"}
		]`},
		"/repos/acme/api/pulls/3?page=1": {body: `{"id":300,"number":3,"user":{"login":"alice"},
			"created_at":"2025-05-10T08:00:00Z","updated_at":"2025-05-12T10:00:00Z","merged_at":"2025-05-12T10:00:00Z",
			"additions":10,"deletions":2,"comments":1,"review_comments":0}`},
		"/repos/acme/api/pulls/3/reviews?page=1": {body: `[
			{"id":30,"user":{"login":"bob"},"state":"APPROVED","submitted_at":"2025-05-11T09:00:00Z"},
			{"id":32,"user":{"login":"bob"},"state":"APPROVED","submitted_at":"2025-05-11T09:30:00Z"}
		]`},
		"/repos/acme/api/issues/3/comments?page=1": {body: `[
			{"id":3000,"user":{"login":"bob"},"created_at":"2025-05-11T10:00:00Z"}
		]`},
		"/repos/acme/api/pulls/2/reviews?page=1": {body: `[
			{"id":20,"user":{"login":"alice"},"state":"COMMENTED","submitted_at":"2025-05-02T12:00:00Z"}
		]`},
		"/repos/acme/api/pulls/2/comments?page=1": {body: `[
			{"id":2000,"user":{"login":"alice"},"created_at":"2025-05-02T12:00:00Z"}
		]`},
		"/repos/acme/api/issues/2/comments?page=1": {body: `[]`},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Fetch: config.FetchConfig{
			Workers:           2,
			PerPage:           100,
			MaxRepositories:   1,
			MaxRetries:        1,
			RetryBaseDelay:    time.Millisecond,
			MaxRateLimitWaits: 1,
		},
		Report: config.ReportConfig{
			ExcludeRepositories: []string{"Legacy"},
			OutputDir:           t.TempDir(),
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config, server *httptest.Server) *ActivityReportService {
	t.Helper()
	client := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	retrier := services.NewRetrier(RetryPolicy(cfg.Fetch)).WithSleeper(func(ctx context.Context, d time.Duration) error {
		return nil
	})
	return NewActivityReportService(cfg, services.NewGitHubService(client, retrier, cfg.Fetch.PerPage))
}

func mayWindow(t *testing.T) models.Window {
	t.Helper()
	w, err := models.ParseWindow("2025-05-01", "2025-05-31", 90, time.Now())
	require.NoError(t, err)
	return w
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunOrgReport(t *testing.T) {
	cfg := testConfig(t)
	service := newTestService(t, cfg, newFakeGitHub(t, orgRoutes()))

	result, err := service.Run(context.Background(), Request{Org: "acme", Window: mayWindow(t)})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "acme", result.Owner)
	assert.Equal(t, 1, result.Repositories)
	assert.Equal(t, 2, result.Fetched.PullRequests)
	assert.Equal(t, 1, result.OutsideWindow, "PR opened in April")
	assert.Equal(t, 2, result.Users)
	assert.Len(t, result.Files, 3)

	dir := cfg.Report.OutputDir
	alice := readCSV(t, filepath.Join(dir, "alice_acme_summary.csv"))
	require.Len(t, alice, 2)
	assert.Equal(t, []string{
		"alice", "2025-05", "1", "1", "10.0", "2.0", "25.00", "0", "1", "1", "1.00", "api", "12,8",
	}, alice[1])

	bob := readCSV(t, filepath.Join(dir, "bob_acme_summary.csv"))
	require.Len(t, bob, 2)
	assert.Equal(t, []string{
		"bob", "2025-05", "0", "0", "", "", "", "1", "1", "1", "", "api", "9,10",
	}, bob[1])

	org := readCSV(t, filepath.Join(dir, "acme_orgwide_report.csv"))
	require.Len(t, org, 3)
	assert.Equal(t, services.OrgColumns, org[0])
	assert.Equal(t, "alice", org[1][0])
	assert.Equal(t, "bob", org[2][0])
}

func TestRunSingleUserReport(t *testing.T) {
	routes := map[string]route{
		"/users/alice/repos?page=1": {body: `[{"name":"dotfiles","pushed_at":"2025-05-20T00:00:00Z"}]`},
		"/repos/alice/dotfiles/pulls?page=1": {body: `[
			{"id":900,"number":9,"user":{"login":"alice"},"created_at":"2025-05-03T14:00:00Z","updated_at":"2025-05-03T14:00:00Z"},
			{"id":901,"number":10,"user":{"login":"renovate"},"created_at":"2025-05-04T14:00:00Z","updated_at":"2025-05-04T14:00:00Z"}
		]`},
		"/repos/alice/dotfiles/pulls/9?page=1":          {body: `{"id":900,"number":9,"user":{"login":"alice"},"created_at":"2025-05-03T14:00:00Z","additions":4,"deletions":1,"comments":0,"review_comments":0}`},
		"/repos/alice/dotfiles/pulls/10?page=1":         {body: `{"id":901,"number":10,"user":{"login":"renovate"},"created_at":"2025-05-04T14:00:00Z","additions":1,"deletions":1,"comments":0,"review_comments":0}`},
		"/repos/alice/dotfiles/pulls/9/reviews?page=1":  {body: `[]`},
		"/repos/alice/dotfiles/pulls/10/reviews?page=1": {body: `[]`},
	}

	cfg := testConfig(t)
	cfg.Report.WriteXLSX = true
	service := newTestService(t, cfg, newFakeGitHub(t, routes))

	result, err := service.Run(context.Background(), Request{User: "alice", Window: mayWindow(t)})
	require.NoError(t, err)

	assert.Equal(t, "alice", result.Owner)
	assert.Equal(t, 1, result.Users)
	assert.ElementsMatch(t, []string{
		filepath.Join(cfg.Report.OutputDir, "alice_alice_summary.csv"),
		filepath.Join(cfg.Report.OutputDir, "alice_orgwide_report.csv"),
		filepath.Join(cfg.Report.OutputDir, "alice_activity_report.xlsx"),
	}, result.Files)

	rows := readCSV(t, filepath.Join(cfg.Report.OutputDir, "alice_alice_summary.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][2])
	assert.Equal(t, "4.0", rows[1][4])
}

func TestRunFailsWithoutWritingOnFetchError(t *testing.T) {
	routes := orgRoutes()
	delete(routes, "/repos/acme/api/pulls/3?page=1")

	cfg := testConfig(t)
	service := newTestService(t, cfg, newFakeGitHub(t, routes))

	_, err := service.Run(context.Background(), Request{Org: "acme", Window: mayWindow(t)})

	var fetchErr *services.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Query.Number)

	entries, err := os.ReadDir(cfg.Report.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunRequiresTarget(t *testing.T) {
	cfg := testConfig(t)
	service := newTestService(t, cfg, newFakeGitHub(t, nil))

	_, err := service.Run(context.Background(), Request{Window: mayWindow(t)})
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(context.Background(), testConfig(t))

	var authErr *services.AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	policy := RetryPolicy(config.FetchConfig{
		MaxRetries:            3,
		RetryBaseDelay:        2 * time.Second,
		MaxRateLimitWaits:     4,
		RateLimitFallbackWait: 30 * time.Second,
	})

	assert.Equal(t, 3, policy.MaxRetries)
	assert.Equal(t, 2*time.Second, policy.BaseDelay)
	assert.Equal(t, 4, policy.MaxRateLimitWaits)
	assert.Equal(t, 30*time.Second, policy.FallbackWait)
	assert.Equal(t, services.DefaultRetryPolicy().MaxWait, policy.MaxWait)
}
