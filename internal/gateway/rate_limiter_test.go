package gateway

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow("P200001")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow("P200001")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Error("Fourth request should be rejected")
	}
}

func TestRateLimiter_PerUserBuckets(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	if allowed, _ := limiter.Allow("P200001"); !allowed {
		t.Error("First user's request should be allowed")
	}
	if allowed, _ := limiter.Allow("P200001"); allowed {
		t.Error("First user should be limited")
	}

	if allowed, _ := limiter.Allow("C100001"); !allowed {
		t.Error("Second user should have a fresh bucket")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	limiter.Allow("P200001")
	if allowed, _ := limiter.Allow("P200001"); allowed {
		t.Error("User should be limited before reset")
	}

	if err := limiter.Reset("P200001"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if allowed, _ := limiter.Allow("P200001"); !allowed {
		t.Error("User should be allowed after reset")
	}
}

func TestRateLimiter_GetLimits(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	limiter.Allow("P200001")
	limiter.Allow("P200001")

	current, limit, err := limiter.GetLimits("P200001")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if limit != 5 {
		t.Errorf("Expected limit 5, got %d", limit)
	}
	if current != 3 {
		t.Errorf("Expected 3 remaining tokens, got %d", current)
	}
}

func TestRateLimiter_RefillsAfterPeriod(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)

	limiter.Allow("P200001")
	if allowed, _ := limiter.Allow("P200001"); allowed {
		t.Error("User should be limited inside the period")
	}

	time.Sleep(15 * time.Millisecond)

	if allowed, _ := limiter.Allow("P200001"); !allowed {
		t.Error("Bucket should refill after the period elapses")
	}
}
