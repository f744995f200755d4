// Package delivery sends accepted sales and rendered reports to outside sinks.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"salesledger/internal/sale"
	"strconv"
	"strings"
	"time"
)

// SaleSink accepts one sale per call.
type SaleSink interface {
	SendSale(ctx context.Context, s sale.Sale) error
}

// ReportSink accepts one report artifact per call.
type ReportSink interface {
	SendReport(ctx context.Context, path string) error
}

// Failure is a delivery that the receiving end did not accept.
type Failure struct {
	// Status is the HTTP status of the response, 0 when no response arrived.
	Status int
	// RetryAfter is the wait the receiver asked for, 0 when it gave none.
	RetryAfter time.Duration
	// Body is the beginning of the response body.
	Body string
	Err  error
}

func (f *Failure) Error() string {
	var b strings.Builder
	if f.Status == 0 {
		b.WriteString("delivery failed without a response")
	} else {
		fmt.Fprintf(&b, "delivery rejected with status %d", f.Status)
	}
	if f.Body != "" {
		fmt.Fprintf(&b, ": %s", f.Body)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %s", f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether sending again may succeed: no response at all,
// a timeout, rate limiting or a server error.
func (f *Failure) Retryable() bool {
	switch {
	case f.Status == 0:
		return true
	case f.Status == http.StatusRequestTimeout:
		return true
	case f.Status == http.StatusTooManyRequests:
		return true
	case f.Status >= 500:
		return true
	}
	return false
}

// IsRetryable reports whether err is a retryable Failure. Errors that are not
// a Failure are not retried.
func IsRetryable(err error) bool {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Retryable()
	}
	return false
}

// parseRetryAfter reads a Retry-After header, either delay-seconds or an
// HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
