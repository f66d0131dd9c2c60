package dcb

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy computes the delay before retry attempt n (0-indexed) as
// min(MaxMs, InitialMs * Base^n). The sequence is exactly reproducible for a
// given policy; jitter is opt-in and applied on top of the base delay.
type BackoffPolicy struct {
	InitialMs   int64
	Base        float64
	MaxMs       int64
	MaxAttempts int
	// JitterFraction in [0,1) widens the delay by up to that fraction.
	// Zero keeps the sequence deterministic.
	JitterFraction float64
}

// DefaultBackoff is the policy used when config supplies nothing.
var DefaultBackoff = BackoffPolicy{
	InitialMs:   100,
	Base:        2,
	MaxMs:       30_000,
	MaxAttempts: 5,
}

// DelayMs returns the capped base delay for attempt n without jitter.
func (p BackoffPolicy) DelayMs(attempt int) int64 {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.InitialMs) * math.Pow(p.Base, float64(attempt))
	if delay > float64(p.MaxMs) || math.IsInf(delay, 1) {
		return p.MaxMs
	}
	return int64(delay)
}

// Delay returns the attempt's delay as a duration, with jitter if configured.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	base := p.DelayMs(attempt)
	if p.JitterFraction > 0 {
		spread := float64(base) * p.JitterFraction
		base += int64(rand.Float64() * spread)
		if base > p.MaxMs {
			base = p.MaxMs
		}
	}
	return time.Duration(base) * time.Millisecond
}

// PartitionKey derives the serialization scope for conflict retries. All
// retries sharing a key execute strictly FIFO; unrelated keys run in
// parallel.
func PartitionKey(tenantID, scopeType, scopeID string) string {
	if tenantID == "" {
		tenantID = "default"
	}
	return fmt.Sprintf("dcb:%s:%s:%s", tenantID, scopeType, scopeID)
}
