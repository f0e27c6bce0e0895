package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.APIPort)
	}
	if cfg.ExtractorMode != "pattern" {
		t.Fatalf("expected default extractor mode pattern, got %q", cfg.ExtractorMode)
	}
	if cfg.NATSSubject != "orders.admitted" {
		t.Fatalf("expected default subject orders.admitted, got %q", cfg.NATSSubject)
	}
	if cfg.Tuning.SynonymFloor != 0.5 || cfg.Tuning.FuzzyFloor != 0.6 {
		t.Fatalf("unexpected default match floors: %+v", cfg.Tuning)
	}
	if cfg.Tuning.ReviewThreshold != 0.8 {
		t.Fatalf("expected default review threshold 0.8, got %v", cfg.Tuning.ReviewThreshold)
	}
	if cfg.RateLimitPerSecond != 0 || cfg.RateLimitBurst != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %v/%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("EXTRACTOR_MODE", "service")
	t.Setenv("FUSION_REVIEW_THRESHOLD", "0.9")
	t.Setenv("MATCH_MAX_CANDIDATES", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected port 9000, got %q", cfg.APIPort)
	}
	if cfg.ExtractorMode != "service" {
		t.Fatalf("expected extractor mode service, got %q", cfg.ExtractorMode)
	}
	if cfg.Tuning.ReviewThreshold != 0.9 {
		t.Fatalf("expected review threshold 0.9, got %v", cfg.Tuning.ReviewThreshold)
	}
	if cfg.Tuning.MaxMatches != 3 {
		t.Fatalf("expected max matches 3, got %d", cfg.Tuning.MaxMatches)
	}
}

func TestLoadMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("FUSION_REVIEW_THRESHOLD", "not-a-number")
	t.Setenv("MATCH_MAX_CANDIDATES", "three")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tuning.ReviewThreshold != 0.8 {
		t.Fatalf("expected fallback threshold 0.8, got %v", cfg.Tuning.ReviewThreshold)
	}
	if cfg.Tuning.MaxMatches != 5 {
		t.Fatalf("expected fallback max matches 5, got %d", cfg.Tuning.MaxMatches)
	}
}

func TestLoadTuningFileOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	contents := "synonym_floor: 0.45\nfuzzy_floor: 0.7\nmax_matches: 2\nwarn_penalty: 0.05\nreview_threshold: 0.85\nprice_warn_tolerance: 0.2\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	t.Setenv("TUNING_PATH", path)
	t.Setenv("MATCH_SYNONYM_FLOOR", "0.99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tuning.SynonymFloor != 0.45 {
		t.Fatalf("expected file to override env, got %v", cfg.Tuning.SynonymFloor)
	}
	if cfg.Tuning.MaxMatches != 2 || cfg.Tuning.ReviewThreshold != 0.85 {
		t.Fatalf("unexpected tuning: %+v", cfg.Tuning)
	}
	if cfg.Tuning.PriceWarnTolerance != 0.2 {
		t.Fatalf("expected price tolerance 0.2, got %v", cfg.Tuning.PriceWarnTolerance)
	}
}

func TestLoadMissingTuningFileFails(t *testing.T) {
	t.Setenv("TUNING_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing tuning file")
	}
}
