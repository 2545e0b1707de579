package logger

import (
	"net/http"
	"strings"
	"testing"
)

func TestSafeHeadersRedaction(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://x/v1/threads", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	req.Header.Set("X-API-Key", "another-secret")
	req.Header.Set("Content-Type", "application/json")

	out := SafeHeaders(req)
	if strings.Contains(out, "secret") {
		t.Fatalf("sensitive value leaked: %s", out)
	}
	if !strings.Contains(out, "Authorization=<redacted>") {
		t.Fatalf("authorization not redacted: %s", out)
	}
	if !strings.Contains(out, "Content-Type=application/json") {
		t.Fatalf("benign header missing: %s", out)
	}
}

func TestInitLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		Init(lvl)
		if Log == nil {
			t.Fatalf("Init(%q) left Log nil", lvl)
		}
	}
}
