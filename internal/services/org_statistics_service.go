package services

import (
	"sort"
	"strings"

	"github.com/alimgiray/gh-activity-report/internal/models"
)

// OrgStatisticsService reduces monthly rows to one summary per user
type OrgStatisticsService struct{}

func NewOrgStatisticsService() *OrgStatisticsService {
	return &OrgStatisticsService{}
}

// Summarize sums counts across months and recomputes averages from the
// underlying totals, so a month with many PRs weighs more than a month with one.
func (s *OrgStatisticsService) Summarize(rows []*models.MonthlyUserStat) []*models.OrgUserSummary {
	byUser := make(map[string]*models.OrgUserSummary)
	for _, row := range rows {
		key := strings.ToLower(row.User)
		summary, ok := byUser[key]
		if !ok {
			summary = models.NewOrgUserSummary(row.User)
			byUser[key] = summary
		}
		summary.Merge(row.ActivityStats)
		summary.Months++
	}

	summaries := make([]*models.OrgUserSummary, 0, len(byUser))
	for _, summary := range byUser {
		summary.Finalize()
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].User) < strings.ToLower(summaries[j].User)
	})
	return summaries
}
