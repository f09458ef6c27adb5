package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"
)

type candidate struct {
	name    string
	timeout time.Duration
}

func testChain(candidates ...candidate) FallbackChain[candidate] {
	return FallbackChain[candidate]{
		Operation:  "test",
		Candidates: candidates,
		Timeout:    func(c candidate) time.Duration { return c.timeout },
		Label:      func(c candidate) string { return c.name },
	}
}

func TestRunFallback_FirstSuccessShortCircuits(t *testing.T) {
	calls := 0
	got, err := RunFallback(context.Background(), testChain(candidate{name: "a"}, candidate{name: "b"}),
		func(ctx context.Context, c candidate) (string, error) {
			calls++
			return "ok-" + c.name, nil
		})

	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if got != "ok-a" {
		t.Errorf("got %q, want %q", got, "ok-a")
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", calls)
	}
}

func TestRunFallback_FallsThroughToLaterCandidate(t *testing.T) {
	var seen []string
	got, err := RunFallback(context.Background(), testChain(candidate{name: "a"}, candidate{name: "b"}, candidate{name: "c"}),
		func(ctx context.Context, c candidate) (int, error) {
			seen = append(seen, c.name)
			if c.name == "b" {
				return 42, nil
			}
			return 0, fmt.Errorf("%s failed", c.name)
		})

	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if fmt.Sprint(seen) != "[a b]" {
		t.Errorf("Attempt order = %v, want [a b]", seen)
	}
}

func TestRunFallback_Exhausted(t *testing.T) {
	calls := 0
	var observed []Attempt
	chain := testChain(candidate{name: "a"}, candidate{name: "b"}, candidate{name: "c"})
	chain.OnAttempt = func(a Attempt) { observed = append(observed, a) }

	_, err := RunFallback(context.Background(), chain, func(ctx context.Context, c candidate) (string, error) {
		calls++
		return "", fmt.Errorf("%s failed", c.name)
	})

	var fe *FallbackError
	if !stderrors.As(err, &fe) {
		t.Fatalf("Expected *FallbackError, got %T", err)
	}
	if calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls)
	}
	if len(fe.Attempts) != 3 || len(observed) != 3 {
		t.Errorf("Expected 3 recorded attempts, got %d/%d", len(fe.Attempts), len(observed))
	}
	if fe.AllTimedOut() {
		t.Error("Tool failures must not be reported as timeouts")
	}
	if fe.Cancelled {
		t.Error("Exhaustion must not be reported as cancellation")
	}
	if fe.Attempts[2].Label != "c" {
		t.Errorf("Last attempt label = %q, want c", fe.Attempts[2].Label)
	}
}

func TestRunFallback_TimeoutMovesOn(t *testing.T) {
	chain := testChain(
		candidate{name: "slow", timeout: 20 * time.Millisecond},
		candidate{name: "slower", timeout: 30 * time.Millisecond},
	)

	start := time.Now()
	_, err := RunFallback(context.Background(), chain, func(ctx context.Context, c candidate) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	var fe *FallbackError
	if !stderrors.As(err, &fe) {
		t.Fatalf("Expected *FallbackError, got %T", err)
	}
	if !fe.AllTimedOut() {
		t.Error("Expected every attempt to be flagged as timed out")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Chain took %v, attempts were not bounded", elapsed)
	}
}

func TestRunFallback_ParentCancellationStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := RunFallback(ctx, testChain(candidate{name: "a"}, candidate{name: "b"}), func(ctx context.Context, c candidate) (string, error) {
		calls++
		cancel()
		return "", ctx.Err()
	})

	var fe *FallbackError
	if !stderrors.As(err, &fe) {
		t.Fatalf("Expected *FallbackError, got %T", err)
	}
	if !fe.Cancelled {
		t.Error("Expected chain to be marked cancelled")
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", calls)
	}
	if fe.AllTimedOut() {
		t.Error("Caller cancellation is not a timeout")
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Error("Expected cancellation cause to unwrap to context.Canceled")
	}
}

func TestRunFallback_NoCandidates(t *testing.T) {
	_, err := RunFallback(context.Background(), testChain(), func(ctx context.Context, c candidate) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	})

	if !stderrors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates, got %v", err)
	}
}
