package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPerIP_BurstThenThrottleThenRefill(t *testing.T) {
	p := New(10, 2, time.Minute)
	defer p.Close()

	require.True(t, p.Allow("1.2.3.4"))
	require.True(t, p.Allow("1.2.3.4"))
	require.False(t, p.Allow("1.2.3.4"), "burst of 2 should be exhausted on the third call")

	time.Sleep(150 * time.Millisecond) // 10/s => ~1.5 tokens refilled
	require.True(t, p.Allow("1.2.3.4"))
}

func TestPerIP_KeysAreIndependent(t *testing.T) {
	p := New(10, 1, time.Minute)
	defer p.Close()

	require.True(t, p.Allow("a"))
	require.False(t, p.Allow("a"))
	require.True(t, p.Allow("b"), "a separate key must have its own budget")
}

func TestPerIP_MiddlewareRejectsOverLimit(t *testing.T) {
	p := New(10, 1, time.Minute)
	defer p.Close()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := p.Middleware(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "5.6.7.8:1234"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestClientIP_PrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:80"
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")

	require.Equal(t, "1.1.1.1", clientIP(req))
}
