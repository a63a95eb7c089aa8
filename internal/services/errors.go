package services

import (
	"fmt"
	"strings"
)

// QueryContext describes the API call a failure belongs to
type QueryContext struct {
	Operation  string
	Owner      string
	Repository string
	Number     int
	Page       int
}

// WithPage returns a copy of q for a specific page
func (q QueryContext) WithPage(page int) QueryContext {
	q.Page = page
	return q
}

func (q QueryContext) String() string {
	var b strings.Builder
	b.WriteString(q.Operation)
	if q.Owner != "" {
		b.WriteString(" ")
		b.WriteString(q.Owner)
		if q.Repository != "" {
			b.WriteString("/")
			b.WriteString(q.Repository)
		}
	}
	if q.Number > 0 {
		fmt.Fprintf(&b, "#%d", q.Number)
	}
	if q.Page > 0 {
		fmt.Fprintf(&b, " page %d", q.Page)
	}
	return b.String()
}

// AuthError means the API credential is missing or rejected. Never retried.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// FetchError is returned once a query failed fatally or ran out of retries
type FetchError struct {
	Query    QueryContext
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.Query, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// WriteError means a report file could not be produced
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
