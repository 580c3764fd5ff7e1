package http

import (
	"sync"
	"time"

	"github.com/dkeye/askroom/internal/core"
)

// JoinRateLimiter bounds join attempts per session to slow down code guessing.
type JoinRateLimiter struct {
	mu        sync.Mutex
	history   map[core.SessionID][]time.Time
	limit     int
	interval  time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewJoinRateLimiter(limit int, interval time.Duration) *JoinRateLimiter {
	return &JoinRateLimiter{
		history:  make(map[core.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *JoinRateLimiter) Allow(sid core.SessionID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	if now.Sub(rl.lastSweep) >= rl.interval {
		rl.sweep(windowStart)
		rl.lastSweep = now
	}

	attempts := rl.history[sid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	rl.history[sid] = append(fresh, now)
	return true
}

// sweep drops sessions with no attempt inside the window. Caller holds mu.
func (rl *JoinRateLimiter) sweep(windowStart time.Time) {
	for sid, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(rl.history, sid)
		}
	}
}
