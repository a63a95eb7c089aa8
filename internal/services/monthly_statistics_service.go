package services

import (
	"sort"
	"strings"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

type monthKey struct {
	user  string
	month string
}

type approvalKey struct {
	user          string
	month         string
	pullRequestID int64
}

// MonthlyStatisticsService folds pull requests, reviews and comments into one
// row per user and month. Records are keyed by id, so adding a record twice has
// no effect on the result.
type MonthlyStatisticsService struct {
	window       models.Window
	pullRequests map[int64]*models.PullRequest
	reviews      map[int64]*models.PRReview
	comments     map[models.CommentKey]*models.ReviewComment
}

func NewMonthlyStatisticsService(window models.Window) *MonthlyStatisticsService {
	return &MonthlyStatisticsService{
		window:       window,
		pullRequests: make(map[int64]*models.PullRequest),
		reviews:      make(map[int64]*models.PRReview),
		comments:     make(map[models.CommentKey]*models.ReviewComment),
	}
}

// AddPullRequest adds a pull request already accepted by the window filter
func (s *MonthlyStatisticsService) AddPullRequest(pr *models.PullRequest) {
	s.pullRequests[pr.ID] = pr
}

// AddReview adds a review already accepted by the window filter
func (s *MonthlyStatisticsService) AddReview(review *models.PRReview) {
	s.reviews[review.ID] = review
}

// AddComment adds a comment already accepted by the window filter
func (s *MonthlyStatisticsService) AddComment(comment *models.ReviewComment) {
	s.comments[comment.Key()] = comment
}

// Build computes the rows for every user the filter allows, sorted by user then month
func (s *MonthlyStatisticsService) Build(filter UserFilter) []*models.MonthlyUserStat {
	rows := make(map[monthKey]*models.MonthlyUserStat)
	names := make(map[string]string)
	row := func(user, month string) *models.MonthlyUserStat {
		login := strings.ToLower(user)
		key := monthKey{user: login, month: month}
		if r, ok := rows[key]; ok {
			return r
		}
		// every row of a user carries the same spelling of the login
		name, ok := names[login]
		if !ok {
			name = filter.DisplayName(user)
			names[login] = name
		}
		r := models.NewMonthlyUserStat(name, month)
		rows[key] = r
		return r
	}

	commentsPerPR := make(map[int64]int)
	for _, c := range s.comments {
		commentsPerPR[c.PullRequestID]++
	}

	for _, pr := range s.sortedPullRequests() {
		if !filter.Allows(pr.Author) {
			continue
		}

		opened := row(pr.Author, models.MonthKey(pr.CreatedAt))
		opened.PROpened++
		opened.AdditionsTotal += pr.Additions
		opened.DeletionsTotal += pr.Deletions
		opened.CommentsReceivedTotal += commentsPerPR[pr.ID]
		opened.AddActivity(pr.Repository, pr.CreatedAt.Hour())

		if pr.IsMerged() && s.window.Contains(*pr.MergedAt) {
			merged := row(pr.Author, models.MonthKey(*pr.MergedAt))
			merged.PRMerged++
			if hours, ok := pr.MergeTimeHours(); ok {
				merged.MergeTimeHoursTotal += hours
				merged.MergeTimeSamples++
			}
		}
	}

	approvals := make(map[approvalKey]bool)
	for _, review := range s.sortedReviews() {
		if !filter.Allows(review.Reviewer) {
			continue
		}

		month := models.MonthKey(review.SubmittedAt)
		r := row(review.Reviewer, month)

		if review.IsApproval() {
			key := approvalKey{user: strings.ToLower(review.Reviewer), month: month, pullRequestID: review.PullRequestID}
			if !approvals[key] {
				approvals[key] = true
				r.ApprovalsGiven++
			}
		}

		if sameLogin(review.Reviewer, review.PullRequestAuthor) {
			continue
		}
		r.AddActivity(review.Repository, review.SubmittedAt.Hour())
		if review.IsFirstReview {
			r.ConversationsOpened++
		}
	}

	for _, comment := range s.sortedComments() {
		if !filter.Allows(comment.Author) || sameLogin(comment.Author, comment.PullRequestAuthor) {
			continue
		}

		r := row(comment.Author, models.MonthKey(comment.CreatedAt))
		r.CommentsGiven++
		r.AddActivity(comment.Repository, comment.CreatedAt.Hour())
	}

	result := make([]*models.MonthlyUserStat, 0, len(rows))
	for _, r := range rows {
		if r.IsEmpty() {
			continue
		}
		r.Finalize()
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		ui, uj := strings.ToLower(result[i].User), strings.ToLower(result[j].User)
		if ui != uj {
			return ui < uj
		}
		return result[i].Month < result[j].Month
	})

	return result
}

// sorted accessors keep float sums independent of map order

func (s *MonthlyStatisticsService) sortedPullRequests() []*models.PullRequest {
	prs := make([]*models.PullRequest, 0, len(s.pullRequests))
	for _, pr := range s.pullRequests {
		prs = append(prs, pr)
	}
	sort.Slice(prs, func(i, j int) bool { return prs[i].ID < prs[j].ID })
	return prs
}

func (s *MonthlyStatisticsService) sortedReviews() []*models.PRReview {
	reviews := make([]*models.PRReview, 0, len(s.reviews))
	for _, r := range s.reviews {
		reviews = append(reviews, r)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID < reviews[j].ID })
	return reviews
}

func (s *MonthlyStatisticsService) sortedComments() []*models.ReviewComment {
	comments := make([]*models.ReviewComment, 0, len(s.comments))
	for _, c := range s.comments {
		comments = append(comments, c)
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].Kind != comments[j].Kind {
			return comments[i].Kind < comments[j].Kind
		}
		return comments[i].ID < comments[j].ID
	})
	return comments
}
