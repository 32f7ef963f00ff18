package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetryClass
	}{
		{"nil", nil, RetrySkip},
		{"timeout type", &TimeoutError{Duration: time.Minute}, RetryBackoff},
		{"concurrent type", &ConcurrentModificationError{EntityType: "task", ID: "t1"}, RetryFixed},
		{"circular type", &CircularDependencyError{Task1: "a", Task2: "b"}, RetryAbort},
		{"wrapped timeout type", fmt.Errorf("launch: %w", &TimeoutError{Duration: time.Second}), RetryBackoff},
		{"connection message", errors.New("connection refused"), RetryBackoff},
		{"network message", errors.New("network is unreachable"), RetryBackoff},
		{"timed out message", errors.New("request timed out"), RetryBackoff},
		{"lock message", errors.New("database is locked"), RetryFixed},
		{"busy message", errors.New("resource busy"), RetryFixed},
		{"conflict message", errors.New("update conflict on row"), RetryFixed},
		{"not found message", errors.New("task not found"), RetrySkip},
		{"no such message", errors.New("no such file or directory"), RetrySkip},
		{"unclassified", errors.New("segmentation violation"), RetryAbort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{
		BackoffAttempts: 5,
		BackoffBase:     time.Millisecond,
		FixedAttempts:   5,
		FixedDelay:      time.Millisecond,
	}

	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryAbortsImmediately(t *testing.T) {
	calls := 0
	abortErr := &CircularDependencyError{Task1: "a", Task2: "b"}
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return abortErr
	})
	if !errors.Is(err, abortErr) {
		t.Fatalf("err = %v, want the abort error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySkipYieldsNil(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return errors.New("workspace does not exist")
	})
	if err != nil {
		t.Fatalf("skip class should yield nil, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsBackoffAttempts(t *testing.T) {
	policy := RetryPolicy{
		BackoffAttempts: 3,
		BackoffBase:     time.Millisecond,
		FixedAttempts:   3,
		FixedDelay:      time.Millisecond,
	}

	calls := 0
	wantErr := errors.New("network down")
	err := Retry(context.Background(), policy, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want last error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryFixedUsesItsOwnAttemptCap(t *testing.T) {
	policy := RetryPolicy{
		BackoffAttempts: 2,
		BackoffBase:     time.Millisecond,
		FixedAttempts:   6,
		FixedDelay:      time.Millisecond,
	}

	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		BackoffAttempts: 10,
		BackoffBase:     time.Hour,
		FixedAttempts:   10,
		FixedDelay:      time.Hour,
	}

	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, policy, func() error {
			return errors.New("connection refused")
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}
