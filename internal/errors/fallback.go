package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Attempt records the outcome of a single candidate in a fallback chain
type Attempt struct {
	Index    int
	Label    string
	Err      error
	TimedOut bool
	Duration time.Duration
}

// FallbackError is returned when no candidate in a chain succeeded
type FallbackError struct {
	Operation string
	Attempts  []Attempt
	// Cancelled is set when the caller's context ended the chain early
	Cancelled bool
	CancelErr error
}

// Error implements the error interface
func (e *FallbackError) Error() string {
	var b strings.Builder
	if e.Cancelled {
		fmt.Fprintf(&b, "%s cancelled after %d attempt(s)", e.Operation, len(e.Attempts))
	} else {
		fmt.Fprintf(&b, "%s failed after %d attempt(s)", e.Operation, len(e.Attempts))
	}
	for _, a := range e.Attempts {
		status := "failed"
		if a.TimedOut {
			status = "timed out"
		}
		fmt.Fprintf(&b, "; #%d %s %s after %s: %v", a.Index+1, a.Label, status, a.Duration.Round(time.Millisecond), a.Err)
	}
	return b.String()
}

// Unwrap returns the error of the last attempt, or the cancellation cause
func (e *FallbackError) Unwrap() error {
	if e.Cancelled && e.CancelErr != nil {
		return e.CancelErr
	}
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// AllTimedOut reports whether every recorded attempt hit its deadline
func (e *FallbackError) AllTimedOut() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	for _, a := range e.Attempts {
		if !a.TimedOut {
			return false
		}
	}
	return true
}

// FallbackChain describes an ordered set of candidates to try one after another.
type FallbackChain[C any] struct {
	// Operation names the chain in errors and logs
	Operation string
	// Candidates are tried strictly in order
	Candidates []C
	// Timeout bounds a single attempt; zero means only the parent context applies
	Timeout func(C) time.Duration
	// Label names a candidate in errors and logs
	Label func(C) string
	// OnAttempt is called after every attempt, successful or not
	OnAttempt func(Attempt)
}

// ErrNoCandidates is returned by RunFallback for an empty chain
var ErrNoCandidates = stderrors.New("fallback chain has no candidates")

// RunFallback calls fn with each candidate in order until one succeeds.
//
// Only one attempt is in flight at any time. Every attempt runs under its own
// deadline derived from ctx; a deadline expiry is recorded as a timed-out
// attempt and the chain moves on. If ctx itself is done the chain stops
// immediately and the returned *FallbackError has Cancelled set.
func RunFallback[C any, T any](ctx context.Context, chain FallbackChain[C], fn func(ctx context.Context, candidate C) (T, error)) (T, error) {
	var zero T

	if len(chain.Candidates) == 0 {
		return zero, fmt.Errorf("%s: %w", chain.Operation, ErrNoCandidates)
	}

	result := &FallbackError{Operation: chain.Operation}

	for i, candidate := range chain.Candidates {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			result.CancelErr = err
			return zero, result
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if chain.Timeout != nil {
			if d := chain.Timeout(candidate); d > 0 {
				attemptCtx, cancel = context.WithTimeout(ctx, d)
			}
		}

		start := time.Now()
		value, err := fn(attemptCtx, candidate)
		attempt := Attempt{
			Index:    i,
			Label:    labelFor(chain, candidate, i),
			Duration: time.Since(start),
		}

		if err == nil {
			cancel()
			if chain.OnAttempt != nil {
				chain.OnAttempt(attempt)
			}
			return value, nil
		}

		// The attempt deadline fired but the caller is still waiting.
		attempt.TimedOut = stderrors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		attempt.Err = err
		cancel()

		if chain.OnAttempt != nil {
			chain.OnAttempt(attempt)
		}
		result.Attempts = append(result.Attempts, attempt)

		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Cancelled = true
			result.CancelErr = ctxErr
			return zero, result
		}
	}

	return zero, result
}

func labelFor[C any](chain FallbackChain[C], candidate C, index int) string {
	if chain.Label != nil {
		if l := chain.Label(candidate); l != "" {
			return l
		}
	}
	return fmt.Sprintf("candidate-%d", index+1)
}
