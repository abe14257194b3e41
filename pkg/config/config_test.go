package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoad(t *testing.T) {
	path := writeConfig(t, `
warehouse:
  path: md:economic_data
  benchmark: SPY
logging:
  level: debug
  format: json
model:
  provider: openai
  name: gpt-4o
  personality: bullish
backtest:
  date_start: 2024-01-01
  date_end: 2024-06-01
optimization:
  min_examples: 150
  promotion_threshold_pct: 7.5
llm:
  endpoint: https://api.openai.com/v1
  tokens_per_minute: 60000
artifacts:
  dir: /var/lib/foresight
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Warehouse.Path != "md:economic_data" || cfg.Warehouse.Benchmark != "SPY" {
		t.Errorf("Load() warehouse = %+v", cfg.Warehouse)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Load() logging = %+v", cfg.Logging)
	}
	if cfg.Model.Personality != "bullish" {
		t.Errorf("Load() personality = %q", cfg.Model.Personality)
	}
	if cfg.Backtest.DateStart != "2024-01-01" || cfg.Backtest.DateEnd != "2024-06-01" {
		t.Errorf("Load() backtest = %+v", cfg.Backtest)
	}
	if cfg.Optimization.MinExamples != 150 || cfg.Optimization.PromotionThresholdPct != 7.5 {
		t.Errorf("Load() optimization = %+v", cfg.Optimization)
	}
	if cfg.LLM.TokensPerMinute != 60000 {
		t.Errorf("Load() tokens per minute = %d", cfg.LLM.TokensPerMinute)
	}
	if cfg.Artifacts.Dir != "/var/lib/foresight" {
		t.Errorf("Load() artifacts dir = %q", cfg.Artifacts.Dir)
	}
}

func TestConfigLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
warehouse:
  path: local.duckdb
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("Load() logging defaults = %+v", cfg.Logging)
	}
	if cfg.Model.Provider != "openai" || cfg.Model.Personality != "skeptical" {
		t.Errorf("Load() model defaults = %+v", cfg.Model)
	}
	if cfg.Optimization.MinExamples != 200 {
		t.Errorf("Load() min examples default = %d", cfg.Optimization.MinExamples)
	}
	if cfg.Optimization.PromotionThresholdPct != 5.0 {
		t.Errorf("Load() promotion threshold default = %v", cfg.Optimization.PromotionThresholdPct)
	}
	if cfg.LLM.TokensPerMinute != 90000 {
		t.Errorf("Load() tokens per minute default = %d", cfg.LLM.TokensPerMinute)
	}
	if cfg.Artifacts.Dir != "artifacts" {
		t.Errorf("Load() artifacts dir default = %q", cfg.Artifacts.Dir)
	}
}

func TestConfigLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DUCKDB_PATH", "md:override")
	t.Setenv("MODEL_PERSONALITY", "neutral")
	t.Setenv("MIN_EXAMPLES", "42")

	path := writeConfig(t, `
warehouse:
  path: local.duckdb
model:
  personality: bullish
optimization:
  min_examples: 150
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Warehouse.Path != "md:override" {
		t.Errorf("Load() warehouse path = %q, want env override", cfg.Warehouse.Path)
	}
	if cfg.Model.Personality != "neutral" {
		t.Errorf("Load() personality = %q, want env override", cfg.Model.Personality)
	}
	if cfg.Optimization.MinExamples != 42 {
		t.Errorf("Load() min examples = %d, want env override", cfg.Optimization.MinExamples)
	}
}

func TestConfigLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}

	path := writeConfig(t, "warehouse: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for malformed yaml, got nil")
	}
}
