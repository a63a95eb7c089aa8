package models

import "errors"

// MonthlyUserStat represents one user's activity in one calendar month
type MonthlyUserStat struct {
	User  string `json:"user"`
	Month string `json:"month"` // YYYY-MM
	ActivityStats
}

// NewMonthlyUserStat creates an empty row for user and month
func NewMonthlyUserStat(user, month string) *MonthlyUserStat {
	return &MonthlyUserStat{
		User:          user,
		Month:         month,
		ActivityStats: NewActivityStats(),
	}
}

// Validate validates the MonthlyUserStat fields
func (m *MonthlyUserStat) Validate() error {
	if m.User == "" {
		return errors.New("user is required")
	}
	if m.Month == "" {
		return errors.New("month is required")
	}
	return m.ActivityStats.validateCounts()
}

func (s *ActivityStats) validateCounts() error {
	if s.PROpened < 0 || s.PRMerged < 0 {
		return errors.New("pull request counts cannot be negative")
	}
	if s.ApprovalsGiven < 0 {
		return errors.New("approvals cannot be negative")
	}
	if s.CommentsGiven < 0 {
		return errors.New("comments cannot be negative")
	}
	if s.ConversationsOpened < 0 {
		return errors.New("conversations cannot be negative")
	}
	return nil
}
