package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func quickPolicy(attempts int, retryIf func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		RetryIf:     retryIf,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := quickPolicy(3, nil).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_TransientThenSuccess(t *testing.T) {
	transient := errors.New("timeout")
	calls := 0
	err := quickPolicy(3, func(err error) bool { return errors.Is(err, transient) }).
		Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("timeout")
	calls := 0
	err := quickPolicy(3, nil).Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected final error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("bad api key")
	calls := 0
	err := quickPolicy(5, func(error) bool { return false }).
		Do(context.Background(), func(context.Context) error {
			calls++
			return fatal
		})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 3, InitialWait: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func(context.Context) error { return errors.New("fail") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoValue(t *testing.T) {
	transient := errors.New("flaky")
	calls := 0
	got, err := DoValue(context.Background(), quickPolicy(3, nil), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", transient
		}
		return "answer", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "answer" {
		t.Errorf("unexpected value: %q", got)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("expected single successful call, err=%v calls=%d", err, calls)
	}
}
