package vigilib

import (
	"sync"
	"time"
)

// Default breaker configuration values
const (
	DEF_BREAKER_THRESHOLD = 5
	DEF_BREAKER_COOLDOWN  = 30 * time.Second
)

// Breaker is a consecutive-failure circuit breaker. After Threshold
// failures in a row the circuit opens for Cooldown; during that window
// Allow returns false and callers should fail fast. One success closes
// the circuit and resets the count.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewBreaker returns a Breaker with the given threshold and cooldown,
// substituting defaults for non-positive values.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DEF_BREAKER_THRESHOLD
	}
	if cooldown <= 0 {
		cooldown = DEF_BREAKER_COOLDOWN
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown}
}

// Allow reports whether a call may proceed. An expired open window
// half-opens the circuit: the next call is allowed through as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().After(b.openUntil)
}

// Record tracks a call outcome. A nil error closes the circuit; an error
// increments the consecutive-failure count and opens the circuit once the
// threshold is reached.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.openUntil = time.Time{}
		return
	}

	b.failures++
	if b.failures >= b.Threshold {
		b.openUntil = time.Now().Add(b.Cooldown)
		b.failures = 0
	}
}

// Failures returns the current consecutive-failure count (for testing).
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
