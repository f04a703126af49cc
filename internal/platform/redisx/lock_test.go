package redisx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "flashcard:1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "flashcard:1", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second Acquire: want ErrLockHeld got=%v", err)
	}
	if _, err := l.Acquire(ctx, "flashcard:2", time.Minute); err != nil {
		t.Fatalf("other key Acquire: %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := l.Acquire(ctx, "flashcard:1", time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestLocalLockerExpires(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k", time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := l.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	// A stale release must not drop the new holder's lock.
	_ = stale(ctx)
	if _, err := l.Acquire(ctx, "k", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("Acquire after stale release: want ErrLockHeld got=%v", err)
	}
}
