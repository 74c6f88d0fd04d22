package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	routes []string
}

func (r *countingRecorder) RecordRateLimited(route string) {
	r.routes = append(r.routes, route)
}

func TestRateLimiter_LoginBurst(t *testing.T) {
	rec := &countingRecorder{}
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 6, Burst: 2}, rec)
	defer rl.Stop()
	ts := newTestServer(t, serverOptions{limiter: rl})

	login := func(ip string) int {
		return ts.do(http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"pw"}`, func(r *http.Request) {
			r.RemoteAddr = ip + ":1234"
		}).Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.1"))
	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.1"))

	limited := ts.do(http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"pw"}`, func(r *http.Request) {
		r.RemoteAddr = "10.0.0.1:1234"
	})
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "10", limited.Header().Get("Retry-After"))
	assert.Equal(t, []string{"/api/auth/login"}, rec.routes)

	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.2"), "other clients are unaffected")
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 60, Burst: 1, CleanupInterval: time.Minute}, nil)
	defer rl.Stop()

	rl.limiterFor("10.0.0.1")
	rl.evictIdle(time.Now().Add(time.Minute))
	assert.Equal(t, 1, rl.Len())

	rl.evictIdle(time.Now().Add(3 * time.Minute))
	assert.Zero(t, rl.Len())
}
