package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// ── Attempt counting ───────────────────────────────────────────────────────

func TestDo_SucceedsFirstTry(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, sleep: noSleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Second, sleep: noSleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return MarkRetryable(fmt.Errorf("rate limited"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, sleep: noSleep}

	calls := 0
	wantErr := MarkRetryable(errors.New("still limited"))
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Do = %v, want last op error", err)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, sleep: noSleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("bad credentials")
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if err == nil {
		t.Error("Do should return the op error")
	}
}

// ── Backoff sequence ───────────────────────────────────────────────────────

func TestDo_BackoffDoublesAndCaps(t *testing.T) {
	var waits []time.Duration
	p := Policy{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Second,
		MaxDelay:    40 * time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}

	_ = p.Do(context.Background(), func(ctx context.Context) error {
		return MarkRetryable(errors.New("429"))
	})

	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("got %d waits, want %d", len(waits), len(want))
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return MarkRetryable(errors.New("429"))
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do = %v, want context.Canceled", err)
	}
}

// ── Retryable marking ──────────────────────────────────────────────────────

func TestRetryable(t *testing.T) {
	if Retryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
	if !Retryable(MarkRetryable(errors.New("limited"))) {
		t.Error("marked error should be retryable")
	}
	if !Retryable(fmt.Errorf("wrapped: %w", MarkRetryable(errors.New("limited")))) {
		t.Error("wrapping should preserve retryability")
	}
	if MarkRetryable(nil) != nil {
		t.Error("MarkRetryable(nil) should be nil")
	}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }
