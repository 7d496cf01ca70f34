package alerting

import (
	"sync"
	"time"
)

// gcThreshold is the entry count past which RecordDelivery sweeps out
// expired entries. Stale entries are harmless, so this is purely to keep
// the map from growing with discharged subjects.
const gcThreshold = 4096

type limiterKey struct {
	subjectID int
	vitalKind string
}

// RateLimiter suppresses repeat notification deliveries for the same
// (subject, vital kind) pair inside a cooldown window. It guards the
// email channel only; the real-time broadcast path never consults it.
// State is in-memory and resets on restart; worst case is one extra
// email after a restart.
type RateLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[limiterKey]time.Time
}

func NewRateLimiter(cooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		cooldown: cooldown,
		last:     make(map[limiterKey]time.Time),
	}
}

// ShouldDeliver reports whether a delivery for the pair is allowed at
// the given instant: true when the pair has never been delivered, or the
// cooldown has fully elapsed since the last recorded delivery.
func (rl *RateLimiter) ShouldDeliver(subjectID int, vitalKind string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	last, exists := rl.last[limiterKey{subjectID, vitalKind}]
	if !exists {
		return true
	}

	return now.Sub(last) >= rl.cooldown
}

// RecordDelivery marks a successful delivery. Callers must only record
// after the send actually succeeded, so a failed send leaves the next
// evaluation free to try again immediately.
func (rl *RateLimiter) RecordDelivery(subjectID int, vitalKind string, now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.last[limiterKey{subjectID, vitalKind}] = now

	if len(rl.last) > gcThreshold {
		rl.sweep(now)
	}
}

// sweep drops entries whose cooldown has already elapsed. Caller holds
// the mutex.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, last := range rl.last {
		if now.Sub(last) >= rl.cooldown {
			delete(rl.last, key)
		}
	}
}

// Len reports the number of tracked pairs.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.last)
}
