package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when CONFIG_FILE is not set. A missing file at
// the default path is not an error.
const DefaultConfigPath = "config/config.yml"

// Persistent store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type AppConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	GinMode         string        `yaml:"gin_mode" env:"GIN_MODE"`
	Environment     string        `yaml:"environment" env:"ENVIRONMENT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver" env:"DRIVER"`
	DSN         string `yaml:"dsn" env:"DSN"`
	TablePrefix string `yaml:"table_prefix" env:"TABLE_PREFIX"`
	LogQueries  bool   `yaml:"log_queries" env:"LOG_QUERIES"`
}

type MongoConfig struct {
	URL             string        `yaml:"url" env:"URL"`
	Database        string        `yaml:"database" env:"DATABASE"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	MaxPoolSize     uint64        `yaml:"max_pool_size" env:"MAX_POOL_SIZE"`
	MinPoolSize     uint64        `yaml:"min_pool_size" env:"MIN_POOL_SIZE"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"MAX_CONN_IDLE_TIME"`
	RetryAttempts   int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval   time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
}

type RedisConfig struct {
	URL            string        `yaml:"url" env:"URL"`
	RetryAttempts  int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval  time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"SECRET"`
	Issuer     string        `yaml:"issuer" env:"ISSUER"`
	Audience   string        `yaml:"audience" env:"AUDIENCE"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"ACCESS_TTL"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL"`
}

// TuyaConfig configures the device-cloud OAuth provider
type TuyaConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	ClientID     string        `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"CLIENT_SECRET"`
	BaseURL      string        `yaml:"base_url" env:"BASE_URL"`
	Region       string        `yaml:"region" env:"REGION"`
	RedirectURI  string        `yaml:"redirect_uri" env:"REDIRECT_URI"`
	Scope        string        `yaml:"scope" env:"SCOPE"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type SessionConfig struct {
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl" env:"PROFILE_CACHE_TTL"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" env:"ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" env:"AUTH_TOKEN"`
	FromNumber string `yaml:"from_number" env:"FROM_NUMBER"`
}

type PostmarkConfig struct {
	ServerToken  string `yaml:"server_token" env:"SERVER_TOKEN"`
	AccountToken string `yaml:"account_token" env:"ACCOUNT_TOKEN"`
	From         string `yaml:"from" env:"FROM"`
}

type ResetConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	URLBase  string        `yaml:"url_base" env:"URL_BASE"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
	Burst             int `yaml:"burst" env:"BURST"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

type Config struct {
	App       AppConfig       `yaml:"app" envPrefix:"APP_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Mongo     MongoConfig     `yaml:"mongodb" envPrefix:"MONGODB_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	JWT       JWTConfig       `yaml:"jwt" envPrefix:"JWT_"`
	Tuya      TuyaConfig      `yaml:"tuya" envPrefix:"TUYA_"`
	Session   SessionConfig   `yaml:"session" envPrefix:"SESSION_"`
	Twilio    TwilioConfig    `yaml:"twilio" envPrefix:"TWILIO_"`
	Postmark  PostmarkConfig  `yaml:"postmark" envPrefix:"POSTMARK_"`
	Reset     ResetConfig     `yaml:"reset" envPrefix:"RESET_"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

// tuyaRegions maps a region code to the provider's OpenAPI host
var tuyaRegions = map[string]string{
	"cn": "https://openapi.tuyacn.com",
	"us": "https://openapi.tuyaus.com",
	"eu": "https://openapi.tuyaeu.com",
	"in": "https://openapi.tuyain.com",
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:            8080,
			GinMode:         "release",
			Environment:     "production",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverPostgres,
		},
		Mongo: MongoConfig{
			Database:        "maestro",
			ConnectTimeout:  10 * time.Second,
			MaxPoolSize:     100,
			MinPoolSize:     1,
			MaxConnIdleTime: 300 * time.Second,
			RetryAttempts:   3,
			RetryInterval:   5 * time.Second,
		},
		Redis: RedisConfig{
			URL:            "redis://localhost:6379/0",
			RetryAttempts:  3,
			RetryInterval:  5 * time.Second,
			ConnectTimeout: 30 * time.Second,
		},
		JWT: JWTConfig{
			Issuer:     "maestro-energy",
			Audience:   "maestro-energy-app",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Tuya: TuyaConfig{
			Region:  "eu",
			Scope:   "openid profile",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			SweepInterval:   time.Hour,
			ProfileCacheTTL: 5 * time.Minute,
		},
		Reset: ResetConfig{
			TokenTTL: time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file, a .env file and
// the process environment, in that order of precedence.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env file: %w", err)
	}

	return load(path, explicit, nil)
}

// load is Load with an explicit environment; a nil environ reads the process environment
func load(path string, required bool, environ map[string]string) (*Config, error) {
	cfg := Default()

	if err := loadConfigFile(path, cfg); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("could not parse environment: %w", err)
	}

	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file at %s: %w", path, err)
	}
	if err := yaml.Unmarshal(bytes, cfg); err != nil {
		return fmt.Errorf("could not parse config yaml: %w", err)
	}
	return nil
}

func (c *Config) applyDerived() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Tuya.BaseURL == "" {
		c.Tuya.BaseURL = tuyaRegions[strings.ToLower(c.Tuya.Region)]
	}
	c.Tuya.BaseURL = strings.TrimRight(c.Tuya.BaseURL, "/")
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	if c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be positive"))
	} else if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL"))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required"))
		}
	case DriverMongo:
		if c.Mongo.URL == "" {
			errs = append(errs, errors.New("MONGODB_URL is required when DATABASE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}

	if c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}

	if c.Tuya.Enabled {
		if c.Tuya.ClientID == "" || c.Tuya.ClientSecret == "" {
			errs = append(errs, errors.New("TUYA_CLIENT_ID and TUYA_CLIENT_SECRET are required when TUYA_ENABLED"))
		}
		if c.Tuya.BaseURL == "" {
			errs = append(errs, fmt.Errorf("TUYA_BASE_URL is required for region %q", c.Tuya.Region))
		}
		if c.Tuya.Timeout <= 0 {
			errs = append(errs, errors.New("TUYA_TIMEOUT must be positive"))
		}
	}

	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.Reset.TokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS_PER_MINUTE must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Environment, "development")
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}
