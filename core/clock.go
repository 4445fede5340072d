package core

import (
	"context"
	"time"
)

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{timer: time.AfterFunc(d, fn)}
}

func (SystemClock) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Stop() bool {
	if t.timer == nil {
		return false
	}
	return t.timer.Stop()
}

var _ Clock = SystemClock{}
