package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/sun8-storefront/internal/i18n"
)

const defaultAddr = "0.0.0.0:8080"

// Storage drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (SUN8_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Language  string `default:"es" usage:"Initial storefront language (es, en, fr)"`
	Storage   StorageConfig
	GenAI     GenAIConfig `env:"GENAI" flag:"genai" yaml:"genai"`
	Checkout  CheckoutConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Driver      string `default:"bolt" usage:"Storage driver: bolt, postgres, redis or memory"`
	Path        string `default:"sun8.db" usage:"bbolt database file"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SUN8_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Redis       RedisConfig
	Quota       int64 `default:"5242880" usage:"Maximum stored bytes, 0 disables the limit"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string `default:"localhost:6379" usage:"Redis address"`
	Password string `usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database"`
}

// GenAIConfig configures the generative AI client shared by the concierge
// and the video studio.
type GenAIConfig struct {
	APIKey       string        `usage:"Generative AI API key (SUN8_GENAI_API_KEY, GEMINI_API_KEY or API_KEY)" flag:"api-key"`
	BaseURL      string        `usage:"Generative AI endpoint override"`
	TextModel    string        `usage:"Concierge model"`
	VideoModel   string        `usage:"Video studio model"`
	Timeout      time.Duration `default:"60s" usage:"Per-request timeout"`
	PollInterval time.Duration `default:"5s" usage:"Video operation poll interval"`
}

// CheckoutConfig tunes the checkout step machine.
type CheckoutConfig struct {
	ProcessingDelay time.Duration `default:"2s" usage:"Simulated order processing latency, negative disables it"`
}

// AdminConfig tunes the admin panel.
type AdminConfig struct {
	MaxImageBytes int64 `default:"8388608" usage:"Largest accepted product image"`
	Node          int64 `default:"1" usage:"Snowflake node id for new product ids"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "SUN8",
		Files:     []string{"config.yaml", "/etc/sun8/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// Validate reports configuration that cannot start the server.
func (c *Config) Validate() error {
	if _, err := i18n.ParseLanguage(c.Language); err != nil {
		return errors.Wrap(err, "language")
	}
	switch c.Storage.Driver {
	case DriverBolt:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for the bolt driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set SUN8_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("redis address is required for the redis driver")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SUN8_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if c.GenAI.APIKey != "" {
			break
		}
		c.GenAI.APIKey = os.Getenv(name)
	}
}

const (
	minWriteTimeout = 60 * time.Second
	writeSlack      = 30 * time.Second
)

// WriteTimeout bounds a whole response. It stays above the GenAI timeout so
// that a slow upstream call is reported as an error instead of a dropped
// connection.
func (c *Config) WriteTimeout() time.Duration {
	return max(minWriteTimeout, c.GenAI.Timeout+writeSlack)
}
