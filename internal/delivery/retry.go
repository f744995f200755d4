package delivery

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how a failed delivery is retried.
type RetryPolicy struct {
	// Attempts is the total number of tries, values below 1 mean 1.
	Attempts  int
	BaseDelay time.Duration
	// MaxDelay caps the backoff and the honored retry-after hint, 0 means no cap.
	MaxDelay time.Duration

	// Sleep waits for d or until ctx is done, tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Second,
		MaxDelay:  time.Minute,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff is the wait before the retry following the given attempt
// (1-based): BaseDelay doubled for every earlier attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) wait(attempt int, err error) time.Duration {
	d := p.Backoff(attempt)
	var failure *Failure
	if errors.As(err, &failure) && failure.RetryAfter > 0 {
		d = failure.RetryAfter
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}

// Do calls send until it succeeds, fails with an error that is not retryable,
// or runs out of attempts. The last error is returned as is.
func (p RetryPolicy) Do(ctx context.Context, send func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = send(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts {
			return err
		}
		sleepErr := sleep(ctx, p.wait(attempt, err))
		if sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return err
}
