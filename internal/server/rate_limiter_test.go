package server

import (
	"testing"
	"time"
)

func TestTokenBucketAllowsBurst(t *testing.T) {
	b := newTokenBucket(RateLimitConfig{Burst: 3, RefillInterval: time.Minute})

	for i := 0; i < 3; i++ {
		if ok, _ := b.allow(); !ok {
			t.Fatalf("call %d within burst should be allowed", i+1)
		}
	}
	if ok, _ := b.allow(); ok {
		t.Error("call beyond burst should be denied")
	}
}

func TestTokenBucketReportsRemaining(t *testing.T) {
	b := newTokenBucket(RateLimitConfig{Burst: 2, RefillInterval: time.Minute})

	if _, left := b.allow(); left < 1 {
		t.Errorf("remaining after first call = %v, want >= 1", left)
	}
	if _, left := b.allow(); left >= 1 {
		t.Errorf("remaining after draining burst = %v, want < 1", left)
	}
}

func TestTokenBucketRefills(t *testing.T) {
	b := newTokenBucket(RateLimitConfig{Burst: 1, RefillInterval: 20 * time.Millisecond})

	if ok, _ := b.allow(); !ok {
		t.Fatal("first call should be allowed")
	}
	if ok, _ := b.allow(); ok {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if ok, _ := b.allow(); !ok {
		t.Error("bucket should have refilled")
	}
}

func TestTokenBucketSanitizesConfig(t *testing.T) {
	b := newTokenBucket(RateLimitConfig{})
	if ok, _ := b.allow(); !ok {
		t.Error("zero-valued config should still allow at least one call")
	}
}
