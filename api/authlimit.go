package api

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const authLimiterSize = 4096

// AuthLimiter tracks failed logins per username. Each failure takes a token from the username's bucket and tokens
// come back one per interval, so a username is blocked once it has failed burst times faster than that.
type AuthLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache
	every    time.Duration
	burst    int
}

func NewAuthLimiter(burst int, every time.Duration) *AuthLimiter {
	if burst < 1 {
		burst = 1
	}
	cache, err := lru.New(authLimiterSize)
	if err != nil {
		panic(err)
	}
	return &AuthLimiter{limiters: cache, every: every, burst: burst}
}

func (a *AuthLimiter) limiter(username string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.limiters.Get(username); ok {
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(a.every), a.burst)
	a.limiters.Add(username, l)
	return l
}

func (a *AuthLimiter) Blocked(username string) bool {
	return a.limiter(username).Tokens() < 1
}

func (a *AuthLimiter) Fail(username string) {
	a.limiter(username).Allow()
}
