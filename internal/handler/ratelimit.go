package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitRecorder receives rejected requests.
type RateLimitRecorder interface {
	RecordRateLimited(route string)
}

// RateLimiterConfig holds the per-IP limit for sign-in endpoints.
type RateLimiterConfig struct {
	PerMinute       float64
	Burst           int
	CleanupInterval time.Duration
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	cleanup time.Duration
	metrics RateLimitRecorder

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopCh chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts evicting idle entries in
// the background. Call Stop to end the cleanup goroutine. metrics may be nil.
func NewRateLimiter(cfg RateLimiterConfig, metrics RateLimitRecorder) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		limit:    rate.Limit(cfg.PerMinute / 60),
		burst:    cfg.Burst,
		cleanup:  cfg.CleanupInterval,
		metrics:  metrics,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if rl.limiterFor(ip).Allow() {
				return next(c)
			}

			if rl.metrics != nil {
				rl.metrics.RecordRateLimited(c.Path())
			}
			slog.Warn("rate limit exceeded", "ip", ip, "path", c.Path())

			c.Response().Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please try again later.")
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastAccess = time.Now()
	return l.limiter
}

func (rl *RateLimiter) retryAfterSeconds() int {
	sec := int(math.Ceil(1.0 / float64(rl.limit)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// evictIdle drops clients idle for more than twice the cleanup interval.
func (rl *RateLimiter) evictIdle(now time.Time) {
	ttl := rl.cleanup * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.limiters {
		if now.Sub(l.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}
