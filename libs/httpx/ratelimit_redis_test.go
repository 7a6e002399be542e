package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	rl := NewRedisRateLimiter(client, 3, time.Minute, "salon:rl")
	ctx := context.Background()

	t.Run("AllowsUpToLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			assert.True(t, ok, "hit %d", i)
		}
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, s.Exists("salon:rl:1.2.3.4"))
	})

	t.Run("WindowExpires", func(t *testing.T) {
		s.FastForward(time.Minute + time.Second)
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("MiddlewareRejectsOverLimit", func(t *testing.T) {
		h := rl.Middleware(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		codes := make([]int, 0, 4)
		for i := 0; i < 4; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			req.Header.Set("X-Forwarded-For", "9.9.9.9")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
		}
		assert.Equal(t, []int{200, 200, 200, 429}, codes)
	})
}

func TestRedisRateLimiterOutage(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	rl := NewRedisRateLimiter(client, 1, time.Minute, "")
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	rl.Middleware(nil, true)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	rl.Middleware(nil, false)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	assert.Error(t, RedisReadyCheck(client)(context.Background()))
}
