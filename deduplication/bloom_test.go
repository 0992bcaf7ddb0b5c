package deduplication

import (
	"testing"
	"time"
)

func TestBloomConfigDisabledWithoutAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	if cfg := bloomConfigFromEnv(DefaultWindow); cfg != nil {
		t.Fatalf("expected no bloom config without REDIS_ADDR, got %+v", cfg)
	}
}

func TestBloomConfigFollowsWindow(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("BLOOM_KEY", "")
	t.Setenv("BLOOM_TTL_SECONDS", "")

	cfg := bloomConfigFromEnv(72 * time.Hour)
	if cfg == nil {
		t.Fatal("expected a bloom config")
	}
	// The filter key expires on the dedup horizon so filter and index age
	// together.
	if cfg.TTL != 72*time.Hour {
		t.Errorf("expected TTL to follow the dedup window, got %v", cfg.TTL)
	}
	if cfg.Key != "mediawatch:fingerprints:bloom" {
		t.Errorf("unexpected default key %q", cfg.Key)
	}

	t.Setenv("BLOOM_TTL_SECONDS", "3600")
	cfg = bloomConfigFromEnv(72 * time.Hour)
	if cfg.TTL != time.Hour {
		t.Errorf("expected BLOOM_TTL_SECONDS to override the window, got %v", cfg.TTL)
	}
}

func TestBloomConfigDefaultWindowWhenUnset(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("BLOOM_TTL_SECONDS", "")

	cfg := bloomConfigFromEnv(0)
	if cfg == nil {
		t.Fatal("expected a bloom config")
	}
	if cfg.TTL != DefaultWindow {
		t.Errorf("expected the default window TTL, got %v", cfg.TTL)
	}
}
