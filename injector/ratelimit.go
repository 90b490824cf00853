package injector

import (
	"sync"
	"time"
)

// repeatLimiter suppresses repeated identical log lines: a key is allowed
// once per interval. Keys are pruned lazily when checked again, which is
// enough since the set of distinct discovery failures is tiny.
type repeatLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func newRepeatLimiter(interval time.Duration) *repeatLimiter {
	return &repeatLimiter{
		interval: interval,
		seen:     make(map[string]time.Time),
	}
}

// Allow reports whether key may be logged now, and records it if so.
func (r *repeatLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if last, ok := r.seen[key]; ok && now.Sub(last) < r.interval {
		return false
	}
	r.seen[key] = now
	return true
}
