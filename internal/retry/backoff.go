package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/exp/constraints"
)

// Backoff decides how long to wait before retry number attempt. done is
// true once no further retry is allowed.
type Backoff interface {
	Next(attempt uint) (wait time.Duration, done bool)
}

type never struct{}

// Never allows no retries.
func Never() Backoff {
	return never{}
}

func (never) Next(uint) (time.Duration, bool) {
	return 0, true
}

// Jitter maps a ceiling to the delay actually waited, in [0, ceiling).
type Jitter func(ceiling int64) int64

type exponential struct {
	base    time.Duration
	max     time.Duration
	retries uint
	jitter  Jitter
}

// Exponential waits a jittered base*2^attempt, capped at max, for at most
// retries attempts. A nil jitter uses full jitter from math/rand.
func Exponential(base time.Duration, max time.Duration, retries uint, jitter Jitter) Backoff {
	if jitter == nil {
		jitter = fullJitter
	}

	return &exponential{
		base:    base,
		max:     max,
		retries: retries,
		jitter:  jitter,
	}
}

func (e *exponential) Next(attempt uint) (time.Duration, bool) {
	if attempt >= e.retries {
		return 0, true
	}

	return time.Duration(e.jitter(clamp(scaled(int64(e.base), attempt), 0, int64(e.max)))), false
}

// scaled returns v<<shift, saturating at math.MaxInt64.
func scaled(v int64, shift uint) int64 {
	if v <= 0 {
		return 0
	}
	if shift >= 63 || v > math.MaxInt64>>shift {
		return math.MaxInt64
	}
	return v << shift
}

func fullJitter(ceiling int64) int64 {
	if ceiling <= 0 {
		return 0
	}
	return rand.Int64N(ceiling)
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
