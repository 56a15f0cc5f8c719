package service_test

import (
	"testing"
	"time"

	"github.com/msomdec/picprompt/internal/service"
)

func TestTokenBucket_AllowsUpToCapacity(t *testing.T) {
	tb := service.NewTokenBucket(0.001, 3)

	for i := 0; i < 3; i++ {
		if !tb.Allow("user:1") {
			t.Fatalf("request %d should be allowed (bucket not yet empty)", i+1)
		}
	}

	if tb.Allow("user:1") {
		t.Fatal("4th request should be denied (bucket empty)")
	}
}

func TestTokenBucket_DifferentKeysAreIndependent(t *testing.T) {
	tb := service.NewTokenBucket(0.001, 1)

	if !tb.Allow("user:1") {
		t.Fatal("user 1 first request should be allowed")
	}
	if tb.Allow("user:1") {
		t.Fatal("user 1 second request should be denied")
	}
	if !tb.Allow("user:2") {
		t.Fatal("user 2 first request should be allowed (independent bucket)")
	}
}

func TestTokenBucket_ZeroRateNeverRefills(t *testing.T) {
	tb := service.NewTokenBucket(0, 2)

	if !tb.Allow("k") || !tb.Allow("k") {
		t.Fatal("first two requests should be allowed")
	}
	if tb.Allow("k") {
		t.Fatal("third request should be denied (no refill)")
	}
}

func TestTokenBucket_Sweep(t *testing.T) {
	tb := service.NewTokenBucket(1, 1)
	tb.Allow("a")
	tb.Allow("b")
	if tb.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", tb.Len())
	}

	tb.Sweep(time.Now().Add(-time.Minute))
	if tb.Len() != 2 {
		t.Fatalf("recent keys should survive, got %d", tb.Len())
	}

	tb.Sweep(time.Now().Add(time.Minute))
	if tb.Len() != 0 {
		t.Fatalf("expected all keys swept, got %d", tb.Len())
	}
}
