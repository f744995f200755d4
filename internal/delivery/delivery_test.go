package delivery

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFailureRetryable(t *testing.T) {
	testCases := []struct {
		status   int
		expected bool
	}{
		{status: 0, expected: true},
		{status: 408, expected: true},
		{status: 429, expected: true},
		{status: 500, expected: true},
		{status: 503, expected: true},
		{status: 400, expected: false},
		{status: 401, expected: false},
		{status: 404, expected: false},
		{status: 422, expected: false},
	}
	for _, test := range testCases {
		f := &Failure{Status: test.status}
		require.Equal(t, test.expected, f.Retryable(), test.status)
		require.Equal(t, test.expected, IsRetryable(f), test.status)
	}
	require.False(t, IsRetryable(errors.New("plain")))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 2, 4, 13, 45, 0, 0, time.UTC)
	require.Equal(t, 7*time.Second, parseRetryAfter("7", now))
	require.Equal(t, time.Duration(0), parseRetryAfter("", now))
	require.Equal(t, time.Duration(0), parseRetryAfter("-3", now))
	require.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
	require.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	require.Equal(t, time.Duration(0), parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestRetryPolicy(t *testing.T) {
	testCases := []struct {
		name     string
		errs     []error
		calls    int
		waits    []time.Duration
		succeeds bool
	}{
		{
			name:     "succeeds after server errors with exponential backoff",
			errs:     []error{&Failure{Status: 502}, &Failure{Status: 0}, nil},
			calls:    3,
			waits:    []time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
			succeeds: true,
		},
		{
			name:  "client error surfaces immediately",
			errs:  []error{&Failure{Status: 400}},
			calls: 1,
		},
		{
			name:  "retry-after is honored",
			errs:  []error{&Failure{Status: 429, RetryAfter: 3 * time.Second}, &Failure{Status: 429, RetryAfter: time.Hour}, &Failure{Status: 429}, &Failure{Status: 429}},
			calls: 4,
			waits: []time.Duration{3 * time.Second, 10 * time.Second, 400 * time.Millisecond},
		},
		{
			name:  "attempts are bounded",
			errs:  []error{&Failure{Status: 500}, &Failure{Status: 500}, &Failure{Status: 500}, &Failure{Status: 500}, nil},
			calls: 4,
			waits: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond},
		},
	}

	for _, test := range testCases {
		rec := &sleepRecorder{}
		policy := RetryPolicy{
			Attempts:  4,
			BaseDelay: 100 * time.Millisecond,
			MaxDelay:  10 * time.Second,
			Sleep:     rec.sleep,
		}
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error {
			e := test.errs[calls]
			calls++
			return e
		})
		require.Equal(t, test.calls, calls, test.name)
		require.Equal(t, test.waits, rec.waits, test.name)
		if test.succeeds {
			require.NoError(t, err, test.name)
		} else {
			require.Error(t, err, test.name)
		}
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryPolicy{Attempts: 5, BaseDelay: time.Hour}.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return &Failure{Status: 503}
	})
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoffIsCapped(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	require.Equal(t, time.Second, p.Backoff(1))
	require.Equal(t, 4*time.Second, p.Backoff(3))
	require.Equal(t, 5*time.Second, p.Backoff(4))
	require.Equal(t, 5*time.Second, p.Backoff(40))
}
