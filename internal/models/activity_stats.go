package models

import "sort"

// TopN is the length of the top_repos and most_active_hours lists
const TopN = 3

// ActivityStats holds the counters of one statistics row together with the
// totals the averages are derived from, so rows can be re-aggregated exactly.
type ActivityStats struct {
	PROpened                 int      `json:"pr_opened"`
	PRMerged                 int      `json:"pr_merged"`
	AvgAdditions             *float64 `json:"avg_additions"`
	AvgDeletions             *float64 `json:"avg_deletions"`
	AvgMergeTimeHours        *float64 `json:"avg_merge_time_h"`
	ApprovalsGiven           int      `json:"approvals_given"`
	CommentsGiven            int      `json:"comments_given"`
	ConversationsOpened      int      `json:"conversations_opened"`
	AvgCommentsReceivedPerPR *float64 `json:"avg_comments_received_per_pr"`
	TopRepos                 []string `json:"top_repos"`
	MostActiveHours          []int    `json:"most_active_hours"`

	AdditionsTotal        int            `json:"-"`
	DeletionsTotal        int            `json:"-"`
	MergeTimeHoursTotal   float64        `json:"-"`
	MergeTimeSamples      int            `json:"-"`
	CommentsReceivedTotal int            `json:"-"`
	RepoActivity          map[string]int `json:"-"`
	HourActivity          map[int]int    `json:"-"`
}

// NewActivityStats returns stats with initialized activity maps
func NewActivityStats() ActivityStats {
	return ActivityStats{
		RepoActivity: make(map[string]int),
		HourActivity: make(map[int]int),
	}
}

// AddActivity records one PR open, review or comment in repo at hour
func (s *ActivityStats) AddActivity(repo string, hour int) {
	if s.RepoActivity == nil {
		s.RepoActivity = make(map[string]int)
	}
	if s.HourActivity == nil {
		s.HourActivity = make(map[int]int)
	}
	if repo != "" {
		s.RepoActivity[repo]++
	}
	s.HourActivity[hour]++
}

// Merge adds the counters and totals of other into s. Derived fields are not
// touched, call Finalize afterwards.
func (s *ActivityStats) Merge(other ActivityStats) {
	s.PROpened += other.PROpened
	s.PRMerged += other.PRMerged
	s.ApprovalsGiven += other.ApprovalsGiven
	s.CommentsGiven += other.CommentsGiven
	s.ConversationsOpened += other.ConversationsOpened
	s.AdditionsTotal += other.AdditionsTotal
	s.DeletionsTotal += other.DeletionsTotal
	s.MergeTimeHoursTotal += other.MergeTimeHoursTotal
	s.MergeTimeSamples += other.MergeTimeSamples
	s.CommentsReceivedTotal += other.CommentsReceivedTotal
	if s.RepoActivity == nil {
		s.RepoActivity = make(map[string]int)
	}
	if s.HourActivity == nil {
		s.HourActivity = make(map[int]int)
	}
	for repo, n := range other.RepoActivity {
		s.RepoActivity[repo] += n
	}
	for hour, n := range other.HourActivity {
		s.HourActivity[hour] += n
	}
}

// Finalize computes averages and ranked lists from the totals
func (s *ActivityStats) Finalize() {
	s.AvgAdditions = mean(float64(s.AdditionsTotal), s.PROpened)
	s.AvgDeletions = mean(float64(s.DeletionsTotal), s.PROpened)
	s.AvgCommentsReceivedPerPR = mean(float64(s.CommentsReceivedTotal), s.PROpened)
	s.AvgMergeTimeHours = mean(s.MergeTimeHoursTotal, s.MergeTimeSamples)
	s.TopRepos = TopRepositories(s.RepoActivity, TopN)
	s.MostActiveHours = TopHours(s.HourActivity, TopN)
}

// IsEmpty reports whether the row carries no activity at all
func (s *ActivityStats) IsEmpty() bool {
	return s.PROpened == 0 && s.PRMerged == 0 && s.ApprovalsGiven == 0 &&
		s.CommentsGiven == 0 && s.ConversationsOpened == 0 && s.MergeTimeSamples == 0 &&
		len(s.RepoActivity) == 0 && len(s.HourActivity) == 0
}

// TopRepositories ranks repos by count descending, name ascending on ties
func TopRepositories(counts map[string]int, n int) []string {
	repos := make([]string, 0, len(counts))
	for repo, count := range counts {
		if count > 0 {
			repos = append(repos, repo)
		}
	}
	sort.Slice(repos, func(i, j int) bool {
		if counts[repos[i]] != counts[repos[j]] {
			return counts[repos[i]] > counts[repos[j]]
		}
		return repos[i] < repos[j]
	})
	if len(repos) > n {
		repos = repos[:n]
	}
	return repos
}

// TopHours ranks hours by count descending, hour ascending on ties
func TopHours(counts map[int]int, n int) []int {
	hours := make([]int, 0, len(counts))
	for hour, count := range counts {
		if count > 0 {
			hours = append(hours, hour)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

func mean(total float64, n int) *float64 {
	if n <= 0 {
		return nil
	}
	v := total / float64(n)
	return &v
}
