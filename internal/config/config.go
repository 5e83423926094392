package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Auth       AuthConfig        `mapstructure:"auth"`
	Log        LogConfig         `mapstructure:"log"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Feed       FeedConfig        `mapstructure:"feed"`
	Admission  AdmissionConfig   `mapstructure:"admission"`
	Budget     BudgetConfig      `mapstructure:"budget"`
	Chains     []ChainConfig     `mapstructure:"chains"`
	Validators []ValidatorConfig `mapstructure:"validators"`
	Slippage   SlippageConfig    `mapstructure:"slippage"`
	Prices     []PriceConfig     `mapstructure:"prices"`
	RateLimit  RateLimitConfig   `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	Password            string `mapstructure:"password"`
	DB                  int    `mapstructure:"db"`
	ProcessedTTLSeconds int    `mapstructure:"processed_ttl_seconds"`
	PriceMaxAgeSeconds  int    `mapstructure:"price_max_age_seconds"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type FeedConfig struct {
	URL string `mapstructure:"url"`
}

type AdmissionConfig struct {
	ValidatorTimeoutMs int `mapstructure:"validator_timeout_ms"`
	BatchConcurrency   int `mapstructure:"batch_concurrency"`
	DecisionBuffer     int `mapstructure:"decision_buffer"`
}

// BudgetConfig leaves MaxUnconfirmedUSD nil when the key is absent, which
// disables the ceiling entirely.
type BudgetConfig struct {
	MaxUnconfirmedUSD *float64 `mapstructure:"max_unconfirmed_usd"`
}

type ChainConfig struct {
	ID             uint64            `mapstructure:"id"`
	Family         string            `mapstructure:"family"` // evm (default) or solana
	RPCURL         string            `mapstructure:"rpc_url"`
	SourceContract string            `mapstructure:"source_contract"` // give-side order contract
	TakerAddress   string            `mapstructure:"taker_address"`
	RPCTimeoutMs   int               `mapstructure:"rpc_timeout_ms"`
	RPCRetries     int               `mapstructure:"rpc_retries"`
	Decimals       []TokenDecimals   `mapstructure:"decimals"`
	SrcValidators  []ValidatorConfig `mapstructure:"src_validators"`
	DstValidators  []ValidatorConfig `mapstructure:"dst_validators"`
}

type TokenDecimals struct {
	Token    string `mapstructure:"token"`
	Decimals uint8  `mapstructure:"decimals"`
}

// ValidatorConfig names a validator and its parameters. Tokens is used by the
// token list validators, MinProfitabilityBps by the profitability validator.
type ValidatorConfig struct {
	Type                string   `mapstructure:"type"`
	Tokens              []string `mapstructure:"tokens"`
	MinProfitabilityBps int      `mapstructure:"min_profitability_bps"`
}

// SlippageConfig points at JSON override files. They are decoded without
// viper because viper lowercases map keys, and base58 token keys are case
// sensitive. DefaultBps, when set, is consulted after both files.
type SlippageConfig struct {
	LocalFile  string `mapstructure:"local_file"`
	BaseFile   string `mapstructure:"base_file"`
	DefaultBps *int   `mapstructure:"default_bps"`
}

type PriceConfig struct {
	ChainID uint64  `mapstructure:"chain_id"`
	Token   string  `mapstructure:"token"`
	USD     float64 `mapstructure:"usd"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if path := os.Getenv("SWAPGATE_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}

	// e.g. SWAPGATE_REDIS_ADDR
	v.SetEnvPrefix("swapgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("redis.processed_ttl_seconds", 7*24*3600)
	v.SetDefault("redis.price_max_age_seconds", 300)
	v.SetDefault("admission.validator_timeout_ms", 10000)
	v.SetDefault("admission.batch_concurrency", 16)
	v.SetDefault("admission.decision_buffer", 1000)
	v.SetDefault("rate_limit.qps", 50)
	v.SetDefault("rate_limit.burst", 100)
}

// Validate rejects configurations that cannot be wired at all.
func (c *Config) Validate() error {
	seen := make(map[uint64]struct{}, len(c.Chains))
	for _, ch := range c.Chains {
		if ch.ID == 0 {
			return fmt.Errorf("config: chain id must be set")
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("config: chain %d declared twice", ch.ID)
		}
		seen[ch.ID] = struct{}{}
		switch ch.Family {
		case "", "evm", "solana":
		default:
			return fmt.Errorf("config: chain %d has unknown family %q", ch.ID, ch.Family)
		}
	}
	if c.Budget.MaxUnconfirmedUSD != nil && *c.Budget.MaxUnconfirmedUSD < 0 {
		return fmt.Errorf("config: budget.max_unconfirmed_usd must not be negative")
	}
	return nil
}

// LoadSlippage reads one JSON slippage override layer. An empty path yields
// nil so callers can skip optional layers.
func LoadSlippage(path string) (*model.SlippageOverrides, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read slippage file %s: %w", path, err)
	}
	var overrides model.SlippageOverrides
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("config: parse slippage file %s: %w", path, err)
	}
	return &overrides, nil
}
