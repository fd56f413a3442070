package gateway

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	jitterMin = 300 * time.Millisecond
	jitterMax = 900 * time.Millisecond
)

// Backoff returns the wait before retrying after failed attempt i (0-based): 2^i seconds plus jitter.
func Backoff(attempt int, jitter time.Duration) time.Duration {
	return time.Duration(1<<attempt)*time.Second + jitter
}

// randomJitter draws uniformly from [300ms, 900ms)
func randomJitter() time.Duration {
	return jitterMin + rand.N(jitterMax-jitterMin)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
