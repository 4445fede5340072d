package core

import (
	"context"
	"time"
)

const (
	defaultRenewalInitialBackoff = time.Second
	defaultRenewalMaxBackoff     = 4 * time.Second
)

// BackoffScheduler yields the delay before retry attempt n (1-based).
type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoffScheduler doubles the delay each attempt, capped at Max.
type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRenewalInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRenewalMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// LinearBackoffScheduler grows the delay by Step each attempt, capped at Max.
type LinearBackoffScheduler struct {
	Step time.Duration
	Max  time.Duration
}

func (s LinearBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	step := s.Step
	if step <= 0 {
		step = 2 * time.Second
	}
	delay := step * time.Duration(attempt)
	if s.Max > 0 && delay > s.Max {
		return s.Max
	}
	return delay
}

func waitWithContext(ctx context.Context, clock Clock, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return clock.Wait(ctx, delay)
}
