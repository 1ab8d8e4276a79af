package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Oracles   OraclesConfig   `yaml:"oracles" mapstructure:"oracles"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the claim store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
	RPS   int    `yaml:"rps" mapstructure:"rps"`
}

// OpenAIConfig holds OpenAI API settings. OpenAI serves double duty: vision
// extraction plus the embedding backend for the normalization catalog.
type OpenAIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Model          string `yaml:"model" mapstructure:"model"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	RPS            int    `yaml:"rps" mapstructure:"rps"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
	ProModel string `yaml:"pro_model" mapstructure:"pro_model"`
	RPS      int    `yaml:"rps" mapstructure:"rps"`
}

// OraclesConfig bounds oracle calls and the per-claim pipeline.
type OraclesConfig struct {
	CallTimeoutSecs  int      `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	ClaimTimeoutSecs int      `yaml:"claim_timeout_secs" mapstructure:"claim_timeout_secs"`
	FanOutLimit      int      `yaml:"fan_out_limit" mapstructure:"fan_out_limit"`
	ExtractProviders []string `yaml:"extract_providers" mapstructure:"extract_providers"`
	RetryMaxAttempts int      `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryBackoffMs   int      `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// CallTimeout returns the per-oracle-call timeout.
func (c OraclesConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSecs) * time.Second
}

// ClaimTimeout returns the whole-claim deadline.
func (c OraclesConfig) ClaimTimeout() time.Duration {
	return time.Duration(c.ClaimTimeoutSecs) * time.Second
}

// CatalogConfig configures the normalization service.
type CatalogConfig struct {
	MatchThreshold float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
	CacheTTLHours  int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MEDICLAIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "claims.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.rps", 5)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.rps", 5)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.pro_model", "gemini-2.5-pro")
	v.SetDefault("gemini.rps", 5)
	v.SetDefault("oracles.call_timeout_secs", 60)
	v.SetDefault("oracles.claim_timeout_secs", 300)
	v.SetDefault("oracles.fan_out_limit", 10)
	v.SetDefault("oracles.retry_max_attempts", 3)
	v.SetDefault("oracles.retry_backoff_ms", 500)
	v.SetDefault("oracles.extract_providers", []string{"gemini", "openai"})
	v.SetDefault("catalog.match_threshold", 0.5)
	v.SetDefault("catalog.cache_ttl_hours", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration can support the given command mode.
// Shared bounds are always checked; credential requirements depend on which
// oracles the mode reaches.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Oracles.CallTimeoutSecs <= 0 {
		problems = append(problems, "oracles.call_timeout_secs must be > 0")
	}
	if c.Oracles.ClaimTimeoutSecs <= 0 {
		problems = append(problems, "oracles.claim_timeout_secs must be > 0")
	}
	if c.Oracles.FanOutLimit < 1 || c.Oracles.FanOutLimit > 100 {
		problems = append(problems, "oracles.fan_out_limit must be between 1 and 100")
	}
	if c.Catalog.MatchThreshold < 0 || c.Catalog.MatchThreshold > 1 {
		problems = append(problems, "catalog.match_threshold must be in [0,1]")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}

	switch mode {
	case "adjudicate", "extract":
		if len(c.Oracles.ExtractProviders) == 0 {
			problems = append(problems, "oracles.extract_providers must name at least one provider")
		}
		for _, p := range c.Oracles.ExtractProviders {
			switch p {
			case "gemini":
				if c.Gemini.Key == "" {
					problems = append(problems, "gemini.key is required")
				}
			case "openai":
				if c.OpenAI.Key == "" {
					problems = append(problems, "openai.key is required")
				}
			case "anthropic":
				if c.Anthropic.Key == "" {
					problems = append(problems, "anthropic.key is required")
				}
			default:
				problems = append(problems, "unknown extract provider "+p)
			}
		}
		// The normalization catalog embeds through OpenAI regardless of
		// which extraction providers are configured.
		if c.OpenAI.Key == "" && mode == "adjudicate" {
			problems = append(problems, "openai.key is required for catalog embeddings")
		}
	case "claims", "policies":
		// Store-only modes; shared checks above suffice.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
