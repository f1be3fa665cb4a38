package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.allow("key") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.allow("key") {
		t.Fatal("request over the limit should be rejected")
	}
	// A different key has its own counter.
	if !rl.allow("other") {
		t.Fatal("independent key should be allowed")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)

	if !rl.allow("key") {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("key") {
		t.Fatal("second immediate request should be rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.allow("key") {
		t.Fatal("request after the window should be allowed")
	}
}
