package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port int `yaml:"port"` // metrics + health
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultProvider string `yaml:"default_provider"` // openai | gemini
	MinerModel      string `yaml:"miner_model"`
	JudgeModel      string `yaml:"judge_model"`
	FlagshipModel   string `yaml:"flagship_model"`
	RelatorModel    string `yaml:"relator_model"`
	RequestsPerMin  int    `yaml:"requests_per_min"` // per-backend ceiling
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type PipelineConfig struct {
	Selectivity       string        `yaml:"selectivity"`      // liberal|moderate|conservative
	JudgeEscalation   float64       `yaml:"judge_escalation"` // confidence cutoff for flagship routing
	MinImportance     float64       `yaml:"min_importance"`   // judge drop threshold
	SchemaVersion     int           `yaml:"schema_version"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	CheckpointPercent int           `yaml:"checkpoint_percent"` // mining checkpoint interval
	CostCeilingMicro  int64         `yaml:"cost_ceiling_micro"` // 0 = unlimited
	RelationBatch     int           `yaml:"relation_batch"`     // claims per relator call
}

type BudgetConfig struct {
	WorkerOverride int `yaml:"worker_override"` // shrink-only override of the hardware budget
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Budget   BudgetConfig   `yaml:"budget"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "" {
		return nil, errors.New("at least one of ai.openai_key or ai.gemini_key is required")
	}
	switch cfg.Pipeline.Selectivity {
	case "liberal", "moderate", "conservative":
	default:
		return nil, fmt.Errorf("pipeline.selectivity %q is not one of liberal|moderate|conservative", cfg.Pipeline.Selectivity)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// ApplyDefaults fills zero values so a sparse YAML file still yields a
// runnable configuration.
func (cfg *Config) ApplyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "openai"
	}
	if cfg.AI.MinerModel == "" {
		cfg.AI.MinerModel = "gpt-4o-mini"
	}
	if cfg.AI.JudgeModel == "" {
		cfg.AI.JudgeModel = "gpt-4o-mini"
	}
	if cfg.AI.FlagshipModel == "" {
		cfg.AI.FlagshipModel = "gpt-4o"
	}
	if cfg.AI.RelatorModel == "" {
		cfg.AI.RelatorModel = cfg.AI.FlagshipModel
	}
	if cfg.AI.RequestsPerMin <= 0 {
		cfg.AI.RequestsPerMin = 120
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 4096
	}
	if cfg.Pipeline.Selectivity == "" {
		cfg.Pipeline.Selectivity = "moderate"
	}
	if cfg.Pipeline.JudgeEscalation <= 0 {
		cfg.Pipeline.JudgeEscalation = 0.55
	}
	if cfg.Pipeline.MinImportance <= 0 {
		cfg.Pipeline.MinImportance = 0.2
	}
	if cfg.Pipeline.SchemaVersion <= 0 {
		cfg.Pipeline.SchemaVersion = 1
	}
	if cfg.Pipeline.CallTimeout <= 0 {
		cfg.Pipeline.CallTimeout = 2 * time.Minute
	}
	if cfg.Pipeline.MaxAttempts <= 0 {
		cfg.Pipeline.MaxAttempts = 4
	}
	if cfg.Pipeline.CheckpointPercent <= 0 {
		cfg.Pipeline.CheckpointPercent = 10
	}
	if cfg.Pipeline.RelationBatch <= 0 {
		cfg.Pipeline.RelationBatch = 12
	}
}
