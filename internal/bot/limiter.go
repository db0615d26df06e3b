package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter gives every user their own command budget.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newUserLimiter(perMinute int) *userLimiter {
	if perMinute <= 0 {
		return &userLimiter{limiters: make(map[string]*rate.Limiter), every: rate.Inf, burst: 1}
	}
	burst := perMinute / 6
	if burst < 3 {
		burst = 3
	}
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

// Allow reports whether userID may run another command now.
func (u *userLimiter) Allow(userID string) bool {
	u.mu.Lock()
	lim, ok := u.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(u.every, u.burst)
		u.limiters[userID] = lim
	}
	u.mu.Unlock()
	return lim.Allow()
}

// Prune forgets users whose budget has fully refilled and returns how many were dropped.
func (u *userLimiter) Prune() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	removed := 0
	for id, lim := range u.limiters {
		if lim.Tokens() >= float64(u.burst) {
			delete(u.limiters, id)
			removed++
		}
	}
	return removed
}
