// Package retry implements the fixed-attempt retry policy shared by every
// network-facing operation: connecting, listing, and downloading all scale
// their inter-attempt delay linearly with the attempt number.
package retry

import (
	"fmt"
	"time"
)

// Policy runs an operation up to Attempts times, sleeping Delay×attempt
// between failures. The zero value is not usable; set Attempts and Delay.
type Policy struct {
	Attempts int
	Delay    time.Duration

	// OnRetry, if set, is called before each re-attempt with the attempt
	// number that just failed.
	OnRetry func(op string, attempt int, err error)

	// Sleep overrides time.Sleep, for tests.
	Sleep func(time.Duration)
}

// ExhaustedError is returned by Do when every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds or the attempt budget is exhausted.
// Attempt n (1-based) is followed, on failure, by a Delay×n sleep.
func (p Policy) Do(op string, fn func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if perr, ok := err.(*permanentError); ok {
			return perr.err
		}
		if attempt < p.Attempts {
			if p.OnRetry != nil {
				p.OnRetry(op, attempt, err)
			}
			sleep(p.Delay * time.Duration(attempt))
		}
	}
	return &ExhaustedError{Op: op, Attempts: p.Attempts, Err: err}
}
