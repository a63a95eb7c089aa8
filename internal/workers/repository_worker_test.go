package workers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/internal/services"
	"github.com/alimgiray/gh-activity-report/pkg/database"
)

// fakeAPI serves canned JSON keyed by path and page
type fakeAPI struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]string
	links     map[string]int
	calls     map[string]int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		responses: make(map[string]string),
		links:     make(map[string]int),
		calls:     make(map[string]int),
	}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func pageKey(path, page string) string {
	if page == "" {
		page = "1"
	}
	return path + "?page=" + page
}

func (api *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	key := pageKey(r.URL.Path, r.URL.Query().Get("page"))

	api.mu.Lock()
	api.calls[key]++
	body, ok := api.responses[key]
	next := api.links[key]
	api.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	if next > 0 {
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=%d>; rel="next"`, api.URL, r.URL.Path, next))
	}
	fmt.Fprint(w, body)
}

func (api *fakeAPI) handle(path string, page int, body string, next int) {
	api.mu.Lock()
	defer api.mu.Unlock()
	key := pageKey(path, fmt.Sprint(page))
	api.responses[key] = body
	if next > 0 {
		api.links[key] = next
	}
}

func (api *fakeAPI) called(path string, page int) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.calls[pageKey(path, fmt.Sprint(page))]
}

func newTestServices(t *testing.T, api *fakeAPI) (*services.GitHubService, *services.StagingService) {
	t.Helper()
	client := github.NewClient(nil)
	base, err := url.Parse(api.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	policy := services.DefaultRetryPolicy()
	policy.MaxRetries = 1
	retrier := services.NewRetrier(policy).WithSleeper(func(ctx context.Context, d time.Duration) error {
		return nil
	})

	db, err := database.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return services.NewGitHubService(client, retrier, 100), services.NewStagingService(db)
}

func mayWindow(t *testing.T) models.Window {
	t.Helper()
	w, err := models.ParseWindow("2025-05-01", "2025-05-31", 90, time.Now())
	require.NoError(t, err)
	return w
}

func seedRepository(api *fakeAPI) {
	api.handle("/repos/acme/api/pulls", 1, `[
		{"id":400,"number":4,"user":{"login":"alice"},"created_at":"2025-06-05T10:00:00Z","updated_at":"2025-06-06T10:00:00Z"},
		{"id":300,"number":3,"user":{"login":"alice"},"created_at":"2025-05-10T08:00:00Z","updated_at":"2025-05-12T10:00:00Z","merged_at":"2025-05-12T10:00:00Z"}
	]`, 2)
	api.handle("/repos/acme/api/pulls", 2, `[
		{"id":200,"number":2,"user":{"login":"bob"},"created_at":"2025-04-01T08:00:00Z","updated_at":"2025-05-02T12:00:00Z"},
		{"id":100,"number":1,"user":{"login":"bob"},"created_at":"2025-03-01T08:00:00Z","updated_at":"2025-04-15T12:00:00Z"}
	]`, 3)

	api.handle("/repos/acme/api/pulls/3", 1, `{"id":300,"number":3,"user":{"login":"alice"},
		"created_at":"2025-05-10T08:00:00Z","updated_at":"2025-05-12T10:00:00Z","merged_at":"2025-05-12T10:00:00Z",
		"additions":10,"deletions":2,"comments":1,"review_comments":0}`, 0)
	api.handle("/repos/acme/api/pulls/3/reviews", 1, `[
		{"id":30,"user":{"login":"bob"},"state":"APPROVED","submitted_at":"2025-05-11T09:00:00Z"},
		{"id":31,"user":{"login":"carol"},"state":"PENDING"}
	]`, 0)
	api.handle("/repos/acme/api/issues/3/comments", 1, `[
		{"id":3000,"user":{"login":"bob"},"created_at":"2025-05-11T10:00:00Z"}
	]`, 0)

	api.handle("/repos/acme/api/pulls/2/reviews", 1, `[
		{"id":20,"user":{"login":"alice"},"state":"COMMENTED","submitted_at":"2025-05-02T12:00:00Z"}
	]`, 0)
	api.handle("/repos/acme/api/pulls/2/comments", 1, `[
		{"id":2000,"user":{"login":"alice"},"created_at":"2025-05-02T12:00:00Z"}
	]`, 0)
	api.handle("/repos/acme/api/issues/2/comments", 1, `[]`, 0)
}

func TestRepositoryWorkerStagesWindowActivity(t *testing.T) {
	api := newFakeAPI(t)
	seedRepository(api)
	githubService, staging := newTestServices(t, api)

	worker := NewRepositoryWorker("fetch-1", githubService, staging, mayWindow(t))
	job := models.NewJob("acme", "api")

	require.NoError(t, worker.ProcessJob(context.Background(), job))

	assert.Equal(t, models.FetchTotals{PullRequests: 2, Reviews: 2, Comments: 2, Skipped: 1, Pages: 2}, job.Totals)
	assert.Equal(t, int64(1), worker.JobsDone())

	records, err := staging.Load()
	require.NoError(t, err)
	require.Len(t, records.PullRequests, 2)

	older, merged := records.PullRequests[0], records.PullRequests[1]
	assert.Equal(t, 2, older.Number)
	assert.Equal(t, models.UnknownCount, older.CommentCount, "no detail fetch for PRs opened before the window")
	require.NotNil(t, older.FirstReviewAt)

	assert.Equal(t, 3, merged.Number)
	assert.Equal(t, 10, merged.Additions)
	assert.Equal(t, 2, merged.Deletions)
	require.NotNil(t, merged.FirstReviewAt)
	assert.True(t, merged.FirstReviewAt.Equal(time.Date(2025, 5, 11, 9, 0, 0, 0, time.UTC)))
	hours, ok := merged.MergeTimeHours()
	require.True(t, ok)
	assert.InDelta(t, 25.0, hours, 1e-9)

	require.Len(t, records.Reviews, 2)
	for _, review := range records.Reviews {
		assert.True(t, review.IsFirstReview)
	}
	assert.Len(t, records.Comments, 2)
}

func TestRepositoryWorkerLimitsRequests(t *testing.T) {
	api := newFakeAPI(t)
	seedRepository(api)
	githubService, staging := newTestServices(t, api)

	worker := NewRepositoryWorker("fetch-1", githubService, staging, mayWindow(t))
	require.NoError(t, worker.ProcessJob(context.Background(), models.NewJob("acme", "api")))

	assert.Equal(t, 0, api.called("/repos/acme/api/pulls", 3), "paging stops at PRs updated before the window")
	assert.Equal(t, 0, api.called("/repos/acme/api/pulls/4/reviews", 1), "PRs opened after the window are skipped")
	assert.Equal(t, 0, api.called("/repos/acme/api/pulls/1/reviews", 1))
	assert.Equal(t, 0, api.called("/repos/acme/api/pulls/2", 1), "details only for PRs opened in the window")
	assert.Equal(t, 1, api.called("/repos/acme/api/pulls/3", 1))
	assert.Equal(t, 0, api.called("/repos/acme/api/pulls/3/comments", 1), "empty review comment listing is skipped")
	assert.Equal(t, 1, api.called("/repos/acme/api/issues/3/comments", 1))
}

func TestRepositoryWorkerFailsOnFetchError(t *testing.T) {
	api := newFakeAPI(t)
	githubService, staging := newTestServices(t, api)

	worker := NewRepositoryWorker("fetch-1", githubService, staging, mayWindow(t))
	err := worker.ProcessJob(context.Background(), models.NewJob("acme", "missing"))

	var fetchErr *services.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "missing", fetchErr.Query.Repository)
	assert.Equal(t, int64(0), worker.JobsDone())
}
