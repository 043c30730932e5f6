package observability

import (
	"sync"
	"time"
)

// RateLimitLogWindow is how long a duplicate rate-limit log line is
// suppressed for, per key, after the first one is logged.
const RateLimitLogWindow = 60 * time.Second

// dedup holds the last time each key was allowed to log, used to coalesce
// repeated log lines (rate-limit errors hitting the same platform on every
// poll tick) within a window.
var dedup = struct {
	mu   sync.Mutex
	last map[string]time.Time
}{last: make(map[string]time.Time)}

// ShouldLog reports whether an event tagged key should be logged now. The
// first call for a given key always logs; subsequent calls return false
// until window has elapsed since the call that last logged.
func ShouldLog(key string, window time.Duration) bool {
	dedup.mu.Lock()
	defer dedup.mu.Unlock()

	now := time.Now()
	if last, ok := dedup.last[key]; ok && now.Sub(last) < window {
		return false
	}
	dedup.last[key] = now
	return true
}
