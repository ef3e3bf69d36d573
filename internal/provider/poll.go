package provider

import (
	"context"
	"time"
)

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pollUntil calls check up to attempts times, sleeping interval between calls.
// It stops early when check reports done or returns an error.
func pollUntil(ctx context.Context, attempts int, interval time.Duration, check func(attempt int) (bool, error)) (bool, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		done, err := check(i)
		if err != nil || done {
			return done, err
		}
		if i == attempts-1 {
			break
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return false, err
		}
	}
	return false, nil
}
