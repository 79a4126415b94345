package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	l := NewKeyedLimiter(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2})

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 was not honoured")
	}
	if l.Allow("a") {
		t.Error("third request for a allowed")
	}
	if !l.Allow("b") {
		t.Error("b throttled by a's traffic")
	}
}

func TestSetLimitOverrides(t *testing.T) {
	l := NewKeyedLimiter(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	l.SetLimit("vendor", 0.001, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("vendor") {
			t.Fatalf("request %d throttled under override", i+1)
		}
	}
	if l.Allow("vendor") {
		t.Error("override burst exceeded")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := NewKeyedLimiter(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	l.Allow("k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k"); err == nil {
		t.Error("Wait returned nil with an empty bucket and short deadline")
	}
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiterWithDefaults()
	l.now = func() time.Time { return now }

	l.Allow("old")
	l.SetLimit("pinned", 1, 1)
	now = now.Add(time.Hour)
	l.Allow("fresh")

	if removed := l.Sweep(10 * time.Minute); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if l.Len() != 2 {
		t.Errorf("len = %d, want 2", l.Len())
	}
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(NewKeyedLimiter(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", code)
	}
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client = %d, want 200", code)
	}
}
