package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

// Outcome classifies a single API attempt
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeRateLimited
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// AttemptResult is what one attempt reports back to the retry driver.
// Wait is the server's hint for rate limited attempts, zero when unknown.
type AttemptResult struct {
	Outcome Outcome
	Wait    time.Duration
	Err     error
}

// RetryPolicy bounds the retry driver
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	MaxRateLimitWaits int
	FallbackWait      time.Duration
	MaxWait           time.Duration
}

// DefaultRetryPolicy mirrors the config defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        5,
		BaseDelay:         5 * time.Second,
		MaxDelay:          2 * time.Minute,
		MaxRateLimitWaits: 10,
		FallbackWait:      60 * time.Second,
		MaxWait:           15 * time.Minute,
	}
}

// Retrier drives single attempts until they succeed, fail fatally or exhaust the policy
type Retrier struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetrier(policy RetryPolicy) *Retrier {
	return &Retrier{policy: policy, sleep: sleepContext}
}

// WithSleeper replaces the wait function, used by tests
func (r *Retrier) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Retrier {
	r.sleep = sleep
	return r
}

func (r *Retrier) newBackoff() retry.Backoff {
	b := retry.NewExponential(r.policy.BaseDelay)
	if r.policy.MaxDelay > 0 {
		b = retry.WithCappedDuration(r.policy.MaxDelay, b)
	}
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(uint64(max(r.policy.MaxRetries, 0)), b)
}

// Do runs attempt until it succeeds. Rate limited attempts wait and retry the same
// request without consuming transient retries.
func (r *Retrier) Do(ctx context.Context, query QueryContext, attempt func(ctx context.Context) AttemptResult) error {
	backoff := r.newBackoff()
	rateLimitWaits := 0

	for attempts := 1; ; attempts++ {
		result := attempt(ctx)

		switch result.Outcome {
		case OutcomeSuccess:
			return nil

		case OutcomeFatal:
			var authErr *AuthError
			if errors.As(result.Err, &authErr) {
				return authErr
			}
			return &FetchError{Query: query, Attempts: attempts, Err: result.Err}

		case OutcomeRateLimited:
			if rateLimitWaits >= r.policy.MaxRateLimitWaits {
				return &FetchError{
					Query:    query,
					Attempts: attempts,
					Err:      fmt.Errorf("rate limit still exceeded after %d waits: %w", rateLimitWaits, result.Err),
				}
			}
			rateLimitWaits++
			wait := r.rateLimitWait(result.Wait)
			logger.WithFields(logrus.Fields{
				"query": query.String(),
				"wait":  wait.String(),
				"try":   rateLimitWaits,
			}).Warn("Rate limit hit, waiting before resuming")
			if err := r.sleep(ctx, wait); err != nil {
				return &FetchError{Query: query, Attempts: attempts, Err: err}
			}

		default:
			delay, stop := backoff.Next()
			if stop {
				return &FetchError{Query: query, Attempts: attempts, Err: result.Err}
			}
			logger.WithFields(logrus.Fields{
				"query": query.String(),
				"delay": delay.String(),
				"try":   attempts,
			}).WithError(result.Err).Warn("Transient API failure, retrying")
			if err := r.sleep(ctx, delay); err != nil {
				return &FetchError{Query: query, Attempts: attempts, Err: err}
			}
		}
	}
}

func (r *Retrier) rateLimitWait(hint time.Duration) time.Duration {
	wait := hint
	if wait <= 0 {
		wait = r.policy.FallbackWait
	}
	if r.policy.MaxWait > 0 && wait > r.policy.MaxWait {
		wait = r.policy.MaxWait
	}
	return wait
}

// ClassifyResponse maps a go-github call result onto an AttemptResult
func ClassifyResponse(resp *github.Response, err error) AttemptResult {
	if err == nil {
		return AttemptResult{Outcome: OutcomeSuccess}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return AttemptResult{Outcome: OutcomeFatal, Err: err}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return AttemptResult{Outcome: OutcomeRateLimited, Wait: time.Until(rateErr.Rate.Reset.Time), Err: err}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var wait time.Duration
		if abuseErr.RetryAfter != nil {
			wait = *abuseErr.RetryAfter
		}
		return AttemptResult{Outcome: OutcomeRateLimited, Wait: wait, Err: err}
	}

	var httpResp *http.Response
	var message string
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		httpResp = errResp.Response
		message = errResp.Message
	}
	if httpResp == nil && resp != nil {
		httpResp = resp.Response
	}
	if httpResp == nil {
		// no response at all, network level failure
		return AttemptResult{Outcome: OutcomeRetryable, Err: err}
	}

	status := httpResp.StatusCode
	switch {
	case status == http.StatusTooManyRequests:
		return AttemptResult{Outcome: OutcomeRateLimited, Wait: retryAfter(httpResp), Err: err}
	case status == http.StatusForbidden && isRateLimitMessage(httpResp, message):
		return AttemptResult{Outcome: OutcomeRateLimited, Wait: retryAfter(httpResp), Err: err}
	case status == http.StatusUnauthorized:
		return AttemptResult{Outcome: OutcomeFatal, Err: &AuthError{Reason: "token rejected by GitHub", Err: err}}
	case status >= 500:
		return AttemptResult{Outcome: OutcomeRetryable, Err: err}
	default:
		return AttemptResult{Outcome: OutcomeFatal, Err: err}
	}
}

func isRateLimitMessage(resp *http.Response, message string) bool {
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	return strings.Contains(strings.ToLower(message), "rate limit")
}

// retryAfter reads Retry-After seconds, then X-RateLimit-Reset
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
				return wait
			}
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
