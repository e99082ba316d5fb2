package speech

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKey = "sk-test00000000000000000000"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(testKey, "alloy", t.TempDir())
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}
	return c
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", testKey, false},
		{"valid with whitespace", "  " + testKey + "  ", false},
		{"empty", "", true},
		{"wrong prefix", "pk-test00000000000000000000", true},
		{"too short", "sk-short", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("sk-abcd1234efgh5678ijkl"); got != "sk-abcd...ijkl" {
		t.Errorf("MaskAPIKey = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("MaskAPIKey(short) = %q, want ***", got)
	}
	if got := MaskAPIKey(""); got != "***" {
		t.Errorf("MaskAPIKey(empty) = %q, want ***", got)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("bad", "alloy", t.TempDir()); err == nil {
		t.Error("expected error for invalid API key")
	}
	if _, err := New(testKey, "robot", t.TempDir()); err == nil {
		t.Error("expected error for unknown voice")
	}
	for _, v := range Voices {
		if _, err := New(testKey, v, t.TempDir()); err != nil {
			t.Errorf("voice %q rejected: %v", v, err)
		}
	}
}

func TestCachePath(t *testing.T) {
	c := newTestClient(t)

	p1 := c.CachePath("The little red hen found some seeds.")
	p2 := c.CachePath("The little red hen found some seeds.")
	if p1 != p2 {
		t.Errorf("cache path not deterministic: %q vs %q", p1, p2)
	}

	p3 := c.CachePath("Nature has many colors.")
	if p1 == p3 {
		t.Error("different texts should map to different cache paths")
	}

	base := filepath.Base(p1)
	if !strings.HasPrefix(base, "alloy_") || !strings.HasSuffix(base, ".mp3") {
		t.Errorf("unexpected cache file name %q", base)
	}
}

func TestSynthesizeUsesCache(t *testing.T) {
	c := newTestClient(t)

	// Pre-seed the cache; Synthesize must return it without calling the API.
	path := c.CachePath("hello")
	if err := os.WriteFile(path, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	got, err := c.Synthesize(t.Context(), "hello")
	if err != nil {
		t.Fatalf("Synthesize with warm cache: %v", err)
	}
	if got != path {
		t.Errorf("Synthesize = %q, want cached %q", got, path)
	}
}

func TestClearCache(t *testing.T) {
	c := newTestClient(t)

	for _, text := range []string{"one", "two", "three"} {
		if err := os.WriteFile(c.CachePath(text), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	if err := c.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(c.cacheDir, "*.mp3"))
	if len(matches) != 0 {
		t.Errorf("expected empty cache, found %v", matches)
	}
}
