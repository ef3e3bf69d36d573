package storage

import (
	"context"
	"time"

	"camgate-go/internal/constants"
)

// withTimeout applies the default storage deadline unless ctx already has one.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = constants.StorageOpTimeout
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
