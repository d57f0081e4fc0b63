package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(retries int) Policy {
	return Policy{
		Timeout:         time.Second,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(2), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls", got, calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	notified := 0
	_, err := Do(context.Background(), fastPolicy(2), func(context.Context) (string, error) {
		calls++
		return "", errors.New("down")
	}, func(error, time.Duration) { notified++ })
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if notified != 2 {
		t.Errorf("expected 2 retry notifications, got %d", notified)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	}, nil)
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	p := fastPolicy(0)
	p.Timeout = 5 * time.Millisecond
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
