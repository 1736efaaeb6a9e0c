package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"portfoliocms/pkg/respond"
)

type visitor struct {
	limiter     *rate.Limiter
	windowStart time.Time
}

// RateLimiter allows at most max requests per fixed window for each client
// IP. The bucket refills one token per window, so it never hands out more
// than max before the window resets.
type RateLimiter struct {
	max     int
	window  time.Duration
	title   string
	message string

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(max int, window time.Duration, title, message string) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		title:    title,
		message:  message,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow reports whether a request from key may proceed, and if not, how long
// until its window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	v, ok := rl.visitors[key]
	if !ok || now.Sub(v.windowStart) >= rl.window {
		v = &visitor{
			limiter:     rate.NewLimiter(rate.Every(rl.window), rl.max),
			windowStart: now,
		}
		rl.visitors[key] = v
	}

	if !v.limiter.AllowN(now, 1) {
		return false, v.windowStart.Add(rl.window).Sub(now)
	}
	return true, 0
}

// sweepLocked drops visitors whose window has ended.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	for k, v := range rl.visitors {
		if now.Sub(v.windowStart) >= rl.window {
			delete(rl.visitors, k)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
			respond.Error(w, http.StatusTooManyRequests, rl.title, rl.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
