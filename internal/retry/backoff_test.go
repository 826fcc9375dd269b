package retry_test

import (
	"fmt"
	"math"
	"runtime"
	"testing"
	"time"
	"visual-regression/internal/retry"

	"github.com/google/go-cmp/cmp"
)

func identity(i int64) int64 {
	return i
}

func TestBackoffNext(t *testing.T) {
	type want struct {
		wait time.Duration
		done bool
	}

	tests := []struct {
		name     string
		receiver retry.Backoff
		in       uint
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Never(),
			0,
			want{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(10*time.Millisecond, time.Second, 0, identity),
			0,
			want{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(10*time.Millisecond, time.Second, 3, identity),
			0,
			want{10 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(10*time.Millisecond, time.Second, 3, identity),
			2,
			want{40 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(10*time.Millisecond, time.Second, 3, identity),
			3,
			want{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(10*time.Millisecond, 50*time.Millisecond, 10, identity),
			5,
			want{50 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(time.Second, math.MaxInt64, 100, identity),
			70,
			want{math.MaxInt64, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.Exponential(time.Second, math.MaxInt64, 100, identity),
			40,
			want{math.MaxInt64, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wait, done := tt.receiver.Next(tt.in)
			if diff := cmp.Diff(tt.want, want{wait, done}, cmp.AllowUnexported(want{})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestExponentialDefaultJitter(t *testing.T) {
	b := retry.Exponential(10*time.Millisecond, time.Second, 5, nil)
	for attempt := uint(0); attempt < 5; attempt++ {
		wait, done := b.Next(attempt)
		if done {
			t.Fatalf("attempt %d: unexpectedly done", attempt)
		}
		if ceiling := (10 * time.Millisecond) << attempt; wait < 0 || wait >= ceiling {
			t.Errorf("attempt %d: %s outside [0, %s)", attempt, wait, ceiling)
		}
	}
}
