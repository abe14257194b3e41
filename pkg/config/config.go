package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the foresight batch jobs.
type Config struct {
	Warehouse    Warehouse    `yaml:"warehouse"`
	Logging      Logging      `yaml:"logging"`
	Model        Model        `yaml:"model"`
	Backtest     Backtest     `yaml:"backtest"`
	Optimization Optimization `yaml:"optimization"`
	LLM          LLM          `yaml:"llm"`
	Artifacts    Artifacts    `yaml:"artifacts"`
}

// Warehouse points at the DuckDB database and names the benchmark.
type Warehouse struct {
	Path           string   `yaml:"path"`
	Benchmark      string   `yaml:"benchmark"`
	BenchmarkTable string   `yaml:"benchmark_table"`
	ReturnTables   []string `yaml:"return_tables"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Model identifies which stored analyses a run operates on.
type Model struct {
	Provider    string `yaml:"provider"`
	Name        string `yaml:"name"`
	Personality string `yaml:"personality"`
}

// Backtest selects the reference dates: either a single date or a month
// range, all YYYY-MM-DD first-of-month.
type Backtest struct {
	Date      string `yaml:"date"`
	DateStart string `yaml:"date_start"`
	DateEnd   string `yaml:"date_end"`
}

// Optimization controls the trainer and the promotion gate.
type Optimization struct {
	MinExamples           int     `yaml:"min_examples"`
	PromotionThresholdPct float64 `yaml:"promotion_threshold_pct"`
	DateStart             string  `yaml:"date_start"`
	DateEnd               string  `yaml:"date_end"`
}

// LLM holds the endpoint and budget for the analysis model.
type LLM struct {
	Endpoint        string `yaml:"endpoint"`
	APIKey          string `yaml:"api_key"`
	TokensPerMinute int    `yaml:"tokens_per_minute"`
}

// Artifacts holds the directory compiled module artifacts are written to.
type Artifacts struct {
	Dir string `yaml:"dir"`
}

// Load reads the YAML configuration at path, applies environment variable
// overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DUCKDB_PATH"); v != "" {
		cfg.Warehouse.Path = v
	}
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("MODEL_PERSONALITY"); v != "" {
		cfg.Model.Personality = v
	}
	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("MIN_EXAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Optimization.MinExamples = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "openai"
	}
	if cfg.Model.Personality == "" {
		cfg.Model.Personality = "skeptical"
	}
	if cfg.Optimization.MinExamples == 0 {
		cfg.Optimization.MinExamples = 200
	}
	if cfg.Optimization.PromotionThresholdPct == 0 {
		cfg.Optimization.PromotionThresholdPct = 5.0
	}
	if cfg.LLM.TokensPerMinute == 0 {
		cfg.LLM.TokensPerMinute = 90000
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "artifacts"
	}
}
