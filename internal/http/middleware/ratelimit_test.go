package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("v1") || !rl.Allow("v1") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if rl.Allow("v1") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("v2") {
		t.Fatalf("expected other viewer to have its own bucket")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("v1") {
		t.Fatalf("expected a token after refill")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Stop()
	for i := 0; i < 10; i++ {
		if !rl.Allow("v") {
			t.Fatalf("expected unlimited when rate is zero")
		}
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("idle")

	rl.evict(now.Add(time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.buckets) != 0 {
		t.Fatalf("expected idle bucket evicted, got %d", len(rl.buckets))
	}
}

func TestRateLimitMiddlewareKeysByClientIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()
	handler := Viewer(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	do := func(remoteAddr, viewer string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
		req.RemoteAddr = remoteAddr
		req.Header.Set(ViewerHeader, viewer)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("203.0.113.5:4100", "a"); code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", code)
	}
	if code := do("203.0.113.5:4101", "b"); code != http.StatusTooManyRequests {
		t.Fatalf("expected a fresh viewer id from the same IP to get 429, got %d", code)
	}
	if code := do("198.51.100.9:4100", "a"); code != http.StatusOK {
		t.Fatalf("expected other IP allowed, got %d", code)
	}
}
