package models

import "errors"

// OrgUserSummary represents one user's activity over the whole report window
type OrgUserSummary struct {
	User   string `json:"user"`
	Months int    `json:"months"` // monthly rows folded into this summary
	ActivityStats
}

// NewOrgUserSummary creates an empty summary for user
func NewOrgUserSummary(user string) *OrgUserSummary {
	return &OrgUserSummary{
		User:          user,
		ActivityStats: NewActivityStats(),
	}
}

// Validate validates the OrgUserSummary fields
func (o *OrgUserSummary) Validate() error {
	if o.User == "" {
		return errors.New("user is required")
	}
	return o.ActivityStats.validateCounts()
}
