// Package clock provides cancellation-aware timing helpers.
package clock

import (
	"context"
	"time"
)

// Sleep pauses for d or until ctx is cancelled, whichever comes first, and
// returns the context error on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
