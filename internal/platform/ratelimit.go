package platform

import (
	"sync"
	"time"

	"github.com/jmylchreest/tvarr/internal/models"
)

// cooldowns holds a process-global cooldown deadline per platform, set by
// MarkRateLimited and read by CooldownRemaining. No Recorder or platform
// client calls either function, so a RateLimited response does not start
// a shared cooldown.
var cooldowns = struct {
	mu        sync.RWMutex
	deadlines map[models.Platform]time.Time
}{deadlines: make(map[models.Platform]time.Time)}

// MarkRateLimited records that platform should not be polled again until
// after retryAfter elapses.
func MarkRateLimited(p models.Platform, retryAfter time.Duration) {
	cooldowns.mu.Lock()
	defer cooldowns.mu.Unlock()
	deadline := time.Now().Add(retryAfter)
	if existing, ok := cooldowns.deadlines[p]; !ok || deadline.After(existing) {
		cooldowns.deadlines[p] = deadline
	}
}

// CooldownRemaining returns how long callers should still wait before
// issuing another request to platform p. Zero means no active cooldown.
func CooldownRemaining(p models.Platform) time.Duration {
	cooldowns.mu.RLock()
	defer cooldowns.mu.RUnlock()

	deadline, ok := cooldowns.deadlines[p]
	if !ok {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}
