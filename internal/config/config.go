package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	LLM           LLMConfig           `toml:"llm"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
	Approval      ApprovalConfig      `toml:"approval"`
	Resilience    ResilienceConfig    `toml:"resilience"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	Jobs          []JobConfig         `toml:"jobs"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath     string `toml:"database_path"`
	BrandProfilePath string `toml:"brand_profile_path"`
	LogLevel         string `toml:"log_level"`
}

// LLMConfig holds settings for the scoring and rewriting model
type LLMConfig struct {
	Endpoint string        `toml:"endpoint"`
	Model    string        `toml:"model"`
	APIKey   string        `toml:"api_key"`
	Timeout  time.Duration `toml:"timeout"`
}

// PipelineConfig holds quality gate settings
type PipelineConfig struct {
	MinimumScore  float64  `toml:"minimum_score"`
	TargetScore   float64  `toml:"target_score"`
	MaxIterations int      `toml:"max_iterations"`
	PlateauGain   float64  `toml:"plateau_gain"`
	Platforms     []string `toml:"platforms"`
}

// ApprovalConfig holds reviewer workflow settings
type ApprovalConfig struct {
	Timeout       time.Duration `toml:"timeout"`
	CheckInterval time.Duration `toml:"check_interval"`
}

// ResilienceConfig holds retry and circuit breaker settings
type ResilienceConfig struct {
	MaxRetries       int           `toml:"max_retries"`
	InitialDelay     time.Duration `toml:"initial_delay"`
	MaxDelay         time.Duration `toml:"max_delay"`
	FailureThreshold int           `toml:"failure_threshold"`
	RecoveryTimeout  time.Duration `toml:"recovery_timeout"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	SlackWebhook  string `toml:"slack_webhook"`
	SlackAppToken string `toml:"slack_app_token"`
	TelegramToken string `toml:"telegram_token"`
	TelegramChat  string `toml:"telegram_chat"`
	Console       bool   `toml:"console"`
}

// WebConfig holds web UI settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// JobConfig describes a scheduled pipeline run
type JobConfig struct {
	Name      string   `toml:"name"`
	Cron      string   `toml:"cron"`
	Topic     string   `toml:"topic"`
	Platforms []string `toml:"platforms"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath:     filepath.Join(home, ".content-pipeline", "pipeline.db"),
			BrandProfilePath: filepath.Join(home, ".content-pipeline", "brand.yaml"),
			LogLevel:         "info",
		},
		LLM: LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
		},
		Pipeline: PipelineConfig{
			MinimumScore:  0.6,
			TargetScore:   0.7,
			MaxIterations: 3,
			PlateauGain:   0.05,
			Platforms:     []string{"twitter", "linkedin"},
		},
		Approval: ApprovalConfig{
			Timeout:       30 * time.Minute,
			CheckInterval: 2 * time.Second,
		},
		Resilience: ResilienceConfig{
			MaxRetries:       3,
			InitialDelay:     500 * time.Millisecond,
			MaxDelay:         10 * time.Second,
			FailureThreshold: 5,
			RecoveryTimeout:  60 * time.Second,
		},
		Notifications: NotificationsConfig{
			Console: true,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.BrandProfilePath = ExpandPath(cfg.General.BrandProfilePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Pipeline.MinimumScore < 0 || c.Pipeline.MinimumScore > 1 {
		return fmt.Errorf("pipeline.minimum_score must be in [0, 1], got %v", c.Pipeline.MinimumScore)
	}
	if c.Pipeline.TargetScore < 0 || c.Pipeline.TargetScore > 1 {
		return fmt.Errorf("pipeline.target_score must be in [0, 1], got %v", c.Pipeline.TargetScore)
	}
	if c.Pipeline.MinimumScore > c.Pipeline.TargetScore {
		return fmt.Errorf("pipeline.minimum_score (%v) must not exceed target_score (%v)",
			c.Pipeline.MinimumScore, c.Pipeline.TargetScore)
	}
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("pipeline.max_iterations must be at least 1, got %d", c.Pipeline.MaxIterations)
	}
	if len(c.Pipeline.Platforms) == 0 {
		return fmt.Errorf("pipeline.platforms must name at least one platform")
	}
	if c.Approval.Timeout <= 0 {
		return fmt.Errorf("approval.timeout must be positive, got %v", c.Approval.Timeout)
	}
	for _, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("every job needs a name")
		}
		if job.Cron == "" {
			return fmt.Errorf("job %q has no cron expression", job.Name)
		}
		if job.Topic == "" {
			return fmt.Errorf("job %q has no topic", job.Name)
		}
	}
	return nil
}

// Save writes the configuration to a TOML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "content-pipeline", "config.toml")
}
