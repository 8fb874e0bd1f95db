package resilience_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/infra/resilience"
)

var errTemporary = errors.New("temporary error")

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errTemporary
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ZeroRetriesIsSingleAttempt(t *testing.T) {
	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{}, func() error {
		calls++
		return errTemporary
	})

	if !errors.Is(err, errTemporary) {
		t.Fatalf("expected errTemporary, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	rejected := errors.New("rejected")

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return resilience.Permanent(rejected)
	})

	if err != rejected {
		t.Fatalf("expected the unwrapped error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errTemporary
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCircuitBreaker_IgnoresAcceptedErrors(t *testing.T) {
	clientErr := errors.New("bad request")
	cb := resilience.NewCircuitBreaker("test", func(err error) bool {
		return errors.Is(err, clientErr)
	})

	for i := 0; i < 10; i++ {
		cb.Execute(func() (any, error) { return nil, clientErr })
	}
	if _, err := cb.Execute(func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("breaker should stay closed, got %v", err)
	}

	// Accepted errors count as successes, so they dilute the failure ratio.
	if counts := cb.Counts(); counts.TotalFailures != 0 || counts.TotalSuccesses != 11 {
		t.Fatalf("expected 11 successes and no failures, got %+v", counts)
	}
}

func TestCircuitBreaker_TripsOnFailures(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test", nil)

	for i := 0; i < 5; i++ {
		cb.Execute(func() (any, error) { return nil, errTemporary })
	}
	_, err := cb.Execute(func() (any, error) { return nil, nil })
	if !resilience.IsOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(1)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected timeout on second acquire")
	}

	bh.Release()
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestLatch_SingleHolder(t *testing.T) {
	var l resilience.Latch
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one holder, got %d", wins.Load())
	}
	if !l.Held() {
		t.Fatal("latch should be held")
	}

	l.Release()
	if !l.TryAcquire() {
		t.Fatal("expected acquire after release")
	}
}
