package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and
// environment variables. Every recognized option is enumerated here with an
// explicit default; there is no loosely-typed options mapping.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	Env                   string        `mapstructure:"app_env"`
	LogLevel              string        `mapstructure:"log_level"`
	ProvidersFile         string        `mapstructure:"providers_file"`
	PublishersFile        string        `mapstructure:"publishers_file"`
	ImportIntervalSeconds int64         `mapstructure:"import_interval"`
	ImportInterval        time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	// Moderation / publication policy.
	AutoPublish            bool          `mapstructure:"auto_publish"`
	AutoPublishLimit       int           `mapstructure:"auto_publish_limit"`
	RequireApproval        bool          `mapstructure:"require_approval"`
	DeleteOnPublish        bool          `mapstructure:"delete_on_publish"`
	PublishIntervalSeconds int64         `mapstructure:"publish_interval"`
	PublishInterval        time.Duration `mapstructure:"-"`

	// AI rewrite gate.
	AIRewriteEnabled bool   `mapstructure:"ai_rewrite_enabled"`
	AIProvider       string `mapstructure:"ai_provider"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIModel      string `mapstructure:"openai_model"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	GeminiModel      string `mapstructure:"gemini_model"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "coupon-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("providers_file", "./configs/providers.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("import_interval", 3600) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/coupons.db")

	v.SetDefault("auto_publish", false)
	v.SetDefault("auto_publish_limit", 10)
	v.SetDefault("require_approval", true)
	v.SetDefault("delete_on_publish", false)
	v.SetDefault("publish_interval", 900) // seconds

	v.SetDefault("ai_rewrite_enabled", false)
	v.SetDefault("ai_provider", "openai")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("gemini_model", "gemini-pro")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ImportIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid import_interval (must be positive seconds)")
	}
	cfg.ImportInterval = time.Duration(cfg.ImportIntervalSeconds) * time.Second

	if cfg.PublishIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid publish_interval (must be positive seconds)")
	}
	cfg.PublishInterval = time.Duration(cfg.PublishIntervalSeconds) * time.Second

	if cfg.AutoPublishLimit <= 0 {
		return nil, fmt.Errorf("invalid auto_publish_limit (must be positive)")
	}

	switch cfg.AIProvider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("unsupported ai_provider %q (expected openai or gemini)", cfg.AIProvider)
	}

	return &cfg, nil
}
