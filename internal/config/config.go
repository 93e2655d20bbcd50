package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"social-content-ai/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StoreConfig struct {
	DatabaseURI  string `yaml:"database_uri"`
	DatabaseName string `yaml:"database_name"`
	MaxConns     int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type ProviderConfig struct {
	Credential string `yaml:"credential"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
}

// DailyLimit is an integer or the word "unbounded".
type DailyLimit int

func (d *DailyLimit) UnmarshalYAML(n *yaml.Node) error {
	v := strings.ToLower(strings.TrimSpace(n.Value))
	if v == "unbounded" || v == "unlimited" {
		*d = DailyLimit(model.Unlimited)
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return fmt.Errorf("line %d: daily limit must be a non-negative integer or \"unbounded\", got %q", n.Line, n.Value)
	}
	*d = DailyLimit(i)
	return nil
}

type TierLimit struct {
	Daily DailyLimit `yaml:"daily"`
}

type LimitsConfig struct {
	Tier map[string]TierLimit `yaml:"tier"`
}

type RetryConfig struct {
	MaxAttempts int   `yaml:"max_attempts"`
	BackoffMs   []int `yaml:"backoff_ms"`
}

type EngineConfig struct {
	PerCallDeadlineSeconds int         `yaml:"per_call_deadline_seconds"`
	Retry                  RetryConfig `yaml:"retry"`
	MaxConcurrency         int         `yaml:"max_concurrency"`
	DefaultMaxTokens       int         `yaml:"default_max_tokens"`
	StoreRetries           int         `yaml:"store_retries"`
	// CatalogSyncInterval controls how often provider availability is
	// written back to the providers collection.
	CatalogSyncInterval time.Duration `yaml:"catalog_sync_interval"`
}

type BatchConfig struct {
	Workers        int           `yaml:"workers"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PersistEvery   int           `yaml:"persist_every"`
	SecondsPerCall int           `yaml:"seconds_per_call"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	// RecoverInterval re-scans PROCESSING batches; zero means LockTTL.
	RecoverInterval time.Duration `yaml:"recover_interval"`
}

type IdempotencyConfig struct {
	Window time.Duration `yaml:"window"`
}

type APIConfig struct {
	Port                int           `yaml:"port"`
	SubmitRatePerMinute int           `yaml:"submit_rate_per_minute"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

type Config struct {
	Log         LogConfig                 `yaml:"log"`
	Store       StoreConfig               `yaml:"store"`
	Redis       RedisConfig               `yaml:"redis"`
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Limits      LimitsConfig              `yaml:"limits"`
	Engine      EngineConfig              `yaml:"engine"`
	Batch       BatchConfig               `yaml:"batch"`
	Idempotency IdempotencyConfig         `yaml:"idempotency"`
	API         APIConfig                 `yaml:"api"`
	// SeedUsers maps user id to tier for dev mode and cmd/seed.
	SeedUsers map[string]string `yaml:"seed_users"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev, loads .env and reads the YAML file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode (in-memory stores, console logs)")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return Load(configPath, dev)
}

// Load reads path, expands ${VAR} references from the environment, applies
// defaults and validates.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Store.DatabaseName == "" {
		c.Store.DatabaseName = "social_content_ai"
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = time.Hour
	}
	if c.Engine.PerCallDeadlineSeconds <= 0 {
		c.Engine.PerCallDeadlineSeconds = 30
	}
	if c.Engine.Retry.MaxAttempts <= 0 {
		c.Engine.Retry.MaxAttempts = 3
	}
	if len(c.Engine.Retry.BackoffMs) == 0 {
		c.Engine.Retry.BackoffMs = []int{500, 2000}
	}
	if c.Engine.MaxConcurrency <= 0 {
		c.Engine.MaxConcurrency = 64
	}
	if c.Engine.DefaultMaxTokens <= 0 {
		c.Engine.DefaultMaxTokens = model.DefaultMaxTokens
	}
	if c.Engine.StoreRetries <= 0 {
		c.Engine.StoreRetries = 2
	}
	if c.Engine.CatalogSyncInterval <= 0 {
		c.Engine.CatalogSyncInterval = 5 * time.Minute
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 4
	}
	if c.Batch.PollInterval <= 0 {
		c.Batch.PollInterval = 500 * time.Millisecond
	}
	if c.Batch.PersistEvery <= 0 {
		c.Batch.PersistEvery = 1
	}
	if c.Batch.SecondsPerCall <= 0 {
		c.Batch.SecondsPerCall = 5
	}
	if c.Batch.LockTTL <= 0 {
		c.Batch.LockTTL = time.Minute
	}
	if c.Batch.RecoverInterval <= 0 {
		c.Batch.RecoverInterval = c.Batch.LockTTL
	}
	if c.Idempotency.Window <= 0 {
		c.Idempotency.Window = 10 * time.Minute
	}
	if c.API.Port <= 0 {
		c.API.Port = 8080
	}
	if c.API.SubmitRatePerMinute <= 0 {
		c.API.SubmitRatePerMinute = 10
	}
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = 2 * time.Minute
	}
}

func (c *Config) validate() error {
	if len(c.Providers) == 0 {
		return errors.New("providers: at least one provider must be configured")
	}
	if c.Runtime.Dev {
		return nil
	}
	if c.Store.DatabaseURI == "" {
		return errors.New("store.database_uri is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	return nil
}

// TierLimits overlays configured tiers on the built-in defaults.
func (c *Config) TierLimits() model.TierLimits {
	limits := model.DefaultTierLimits()
	for name, t := range c.Limits.Tier {
		limits[model.ParseTier(name)] = int(t.Daily)
	}
	return limits
}

func (c *Config) PerCallDeadline() time.Duration {
	return time.Duration(c.Engine.PerCallDeadlineSeconds) * time.Second
}

func (c *Config) Backoff() []time.Duration {
	out := make([]time.Duration, len(c.Engine.Retry.BackoffMs))
	for i, ms := range c.Engine.Retry.BackoffMs {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}
