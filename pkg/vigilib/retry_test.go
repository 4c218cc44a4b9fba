package vigilib

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrCategoryFatal},
		{"canceled", context.Canceled, ErrCategoryFatal},
		{"deadline", context.DeadlineExceeded, ErrCategoryRetryable},
		{"eof", io.EOF, ErrCategoryRetryable},
		{"reset", errors.New("read tcp: connection reset by peer"), ErrCategoryRetryable},
		{"refused", errors.New("dial tcp: connection refused"), ErrCategoryRetryable},
		{"throttled", errors.New("HTTP 429 Too Many Requests"), ErrCategoryThrottled},
		{"unavailable", errors.New("503 service unavailable"), ErrCategoryThrottled},
		{"unknown", errors.New("invalid request body"), ErrCategoryFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	cfg := fastRetry(3)
	calls := 0
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	cfg := fastRetry(5)
	calls := 0
	fatal := errors.New("invalid address")
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("Do() error = %v, want the fatal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on fatal errors)", calls)
	}
}

func TestDo_BudgetExhausted(t *testing.T) {
	cfg := fastRetry(3)
	calls := 0
	transient := errors.New("timeout waiting for response")
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("Do() error = %v, want last transient error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ContextCancelBetweenAttempts(t *testing.T) {
	cfg := fastRetry(10)
	cfg.BaseDelay = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := cfg.Do(ctx, func(ctx context.Context) error {
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}

func TestDo_OpenBreakerFailsFast(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	b.Record(errors.New("boom")) // opens immediately at threshold 1

	cfg := fastRetry(3)
	cfg.Breaker = b
	calls := 0
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Do() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 while the circuit is open", calls)
	}
}

func TestCalculateBackoff_GrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
	if d := cfg.CalculateBackoff(1); d != 100*time.Millisecond {
		t.Errorf("attempt 1 backoff = %v, want 100ms", d)
	}
	if d := cfg.CalculateBackoff(2); d != 200*time.Millisecond {
		t.Errorf("attempt 2 backoff = %v, want 200ms", d)
	}
	if d := cfg.CalculateBackoff(10); d != time.Second {
		t.Errorf("attempt 10 backoff = %v, want the 1s cap", d)
	}
}
