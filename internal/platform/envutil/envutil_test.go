package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	if got := Int("X_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("X_INT", " 12 ")
	if got := Int("X_INT", 7); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	if Bool("X_BOOL", true) {
		t.Fatalf("Bool: want=false got=true")
	}
	t.Setenv("X_BOOL", "")
	if !Bool("X_BOOL", true) {
		t.Fatalf("Bool default: want=true got=false")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("X_SECS", "0")
	if got := Seconds("X_SECS", 20*time.Second); got != 20*time.Second {
		t.Fatalf("Seconds default: want=20s got=%s", got)
	}
	t.Setenv("X_SECS", "5")
	if got := Seconds("X_SECS", 20*time.Second); got != 5*time.Second {
		t.Fatalf("Seconds: want=5s got=%s", got)
	}
}
