package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/matching"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"API_PORT", "NATS_SUBJECT", "MATCHING_CANDIDATE_LIMIT", "AI_ANALYSIS_ENABLED", "API_RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "items.reported" || cfg.NATSMatchSubject != "matches.found" {
		t.Fatalf("unexpected subjects %q %q", cfg.NATSSubject, cfg.NATSMatchSubject)
	}
	if cfg.MatchingCandidateLimit != 500 || cfg.ItemTTLDays != 30 {
		t.Fatalf("unexpected matching defaults %+v", cfg)
	}
	if !cfg.AIAnalysisEnabled || cfg.APIRateLimitRPS != 50 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadParsesOverridesAndFallsBackOnGarbage(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MATCHING_WORKERS", "4")
	t.Setenv("API_RATE_LIMIT_RPS", "12.5")
	t.Setenv("AI_ANALYSIS_ENABLED", "false")
	t.Setenv("ITEM_TTL_DAYS", "soon")

	cfg := Load()
	if cfg.MatchingWorkers != 4 || cfg.APIRateLimitRPS != 12.5 || cfg.AIAnalysisEnabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ItemTTLDays != 30 {
		t.Fatalf("expected fallback ttl, got %d", cfg.ItemTTLDays)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NATS_MATCH_SUBJECT=from.file\nAPI_PORT=9999\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("API_PORT", "7000")
	t.Setenv("NATS_MATCH_SUBJECT", "")
	os.Unsetenv("NATS_MATCH_SUBJECT")

	cfg := Load()
	if cfg.NATSMatchSubject != "from.file" {
		t.Fatalf("expected subject from .env, got %q", cfg.NATSMatchSubject)
	}
	if cfg.APIPort != "7000" {
		t.Fatalf("expected environment to win over .env, got %q", cfg.APIPort)
	}
}

func TestLoadMatchingConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matching.yaml")
	body := "weights:\n  text_similarity: 0.5\nadmission_floor: 0.35\nmax_matches: 3\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadMatchingConfig(path, matching.DefaultConfig())
	if err != nil {
		t.Fatalf("LoadMatchingConfig() error = %v", err)
	}
	if cfg.Weights.Text != 0.5 || cfg.Weights.Field != 0.20 {
		t.Fatalf("expected partial weight overlay, got %+v", cfg.Weights)
	}
	if cfg.AdmissionFloor != 0.35 || cfg.MaxMatches != 3 || cfg.NoiseFloor != matching.DefaultNoiseFloor {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadMatchingConfigRejectsUnknownKeysAndInvalidValues(t *testing.T) {
	dir := t.TempDir()
	typo := filepath.Join(dir, "typo.yaml")
	_ = os.WriteFile(typo, []byte("admision_floor: 0.3\n"), 0o600)
	if _, err := LoadMatchingConfig(typo, matching.DefaultConfig()); err == nil {
		t.Fatalf("expected unknown key error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	_ = os.WriteFile(invalid, []byte("max_matches: 0\n"), 0o600)
	_, err := LoadMatchingConfig(invalid, matching.DefaultConfig())
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadMatchingConfigWithoutPathReturnsBase(t *testing.T) {
	base := matching.DefaultConfig()
	cfg, err := LoadMatchingConfig("", base)
	if err != nil || cfg != base {
		t.Fatalf("expected base config, got %+v err=%v", cfg, err)
	}
}
