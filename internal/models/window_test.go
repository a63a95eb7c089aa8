package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowContainsBoundaries(t *testing.T) {
	w, err := ParseWindow("2025-05-01", "2025-05-31", 90, time.Now())
	require.NoError(t, err)

	testCases := []struct {
		name     string
		ts       time.Time
		expected bool
	}{
		{"exactly since midnight", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"one second before since", time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC), false},
		{"last second of until", time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), true},
		{"day after until", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"offset zone before since in UTC", time.Date(2025, 5, 1, 1, 0, 0, 0, time.FixedZone("CEST", 2*3600)), false},
		{"zero time", time.Time{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, w.Contains(tc.ts))
		})
	}
}

func TestWindowRecordPredicates(t *testing.T) {
	w, err := ParseWindow("2025-05-01", "2025-05-31", 90, time.Now())
	require.NoError(t, err)

	inside := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, w.ContainsPullRequest(&PullRequest{CreatedAt: inside}))
	assert.False(t, w.ContainsPullRequest(&PullRequest{CreatedAt: outside, MergedAt: &inside}))
	assert.True(t, w.ContainsReview(&PRReview{SubmittedAt: inside}))
	assert.False(t, w.ContainsComment(&ReviewComment{CreatedAt: outside}))
}

func TestParseWindowDefaults(t *testing.T) {
	now := time.Date(2025, 7, 15, 18, 30, 0, 0, time.UTC)

	w, err := ParseWindow("", "", 30, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), w.Until)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), w.Since)
	assert.Equal(t, "2025-06-15..2025-07-15", w.String())
}

func TestParseWindowErrors(t *testing.T) {
	now := time.Now()

	_, err := ParseWindow("2025-13-01", "", 30, now)
	assert.Error(t, err)

	_, err = ParseWindow("", "yesterday", 30, now)
	assert.Error(t, err)

	_, err = ParseWindow("2025-06-01", "2025-05-01", 30, now)
	assert.Error(t, err)

	_, err = ParseWindow("", "", 0, now)
	assert.Error(t, err)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-05", MonthKey(time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-05", MonthKey(time.Date(2025, 6, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600))))
}
