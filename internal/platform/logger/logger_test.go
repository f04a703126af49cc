package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsSecrets(t *testing.T) {
	if got := sanitizeValue("gemini_api_key", "abc"); got != "[REDACTED]" {
		t.Fatalf("api key: want=%q got=%v", "[REDACTED]", got)
	}
	if got := sanitizeValue("authorization", "Bearer x"); got != "[REDACTED]" {
		t.Fatalf("authorization: want=%q got=%v", "[REDACTED]", got)
	}
}

func TestSanitizeValueKeepsTokenCounts(t *testing.T) {
	if got := sanitizeValue("total_token_count", 42); got != 42 {
		t.Fatalf("token count: want=42 got=%v", got)
	}
}

func TestSanitizeValueHashesOwnerIDs(t *testing.T) {
	got, ok := sanitizeValue("created_by", "user-1").(string)
	if !ok || !strings.HasPrefix(got, "hash:") {
		t.Fatalf("created_by: want hash prefix got=%v", got)
	}
	if len(got) != len("hash:")+12 {
		t.Fatalf("hash length: want=%d got=%d", len("hash:")+12, len(got))
	}
}

func TestSanitizeValueStripsSignedURLQuery(t *testing.T) {
	in := "https://storage.googleapis.com/b/k.png?X-Goog-Signature=abc"
	got := sanitizeValue("url", in)
	if got != "https://storage.googleapis.com/b/k.png?[REDACTED]" {
		t.Fatalf("signed url: got=%v", got)
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With("service", "x").Info("hello", "k", "v")
}
