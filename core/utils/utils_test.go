package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestRetry(t *testing.T) {
	errBusy := errors.New("database is locked")

	tests := []struct {
		name      string
		attempts  int
		failFirst int
		wantCalls int
		wantErr   bool
	}{
		{"first attempt succeeds", 3, 0, 1, false},
		{"succeeds after failures", 3, 2, 3, false},
		{"all attempts fail", 3, 5, 3, true},
		{"zero attempts treated as one", 0, 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastConfig(tt.attempts), func() error {
				calls++
				if calls <= tt.failFirst {
					return errBusy
				}
				return nil
			})

			if (err != nil) != tt.wantErr {
				t.Fatalf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errBusy) {
				t.Errorf("Retry() should wrap the last error, got %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastConfig(3), func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fn should not run on a canceled context, ran %d times", calls)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts < 1 || cfg.BaseDelay <= 0 || cfg.Multiplier < 1 {
		t.Errorf("DefaultRetryConfig() = %+v", cfg)
	}
}

func TestRetryPermanent(t *testing.T) {
	errBad := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), fastConfig(5), func() error {
		calls++
		return Permanent(errBad)
	})

	if err != errBad {
		t.Errorf("Retry() = %v, want the unwrapped error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
