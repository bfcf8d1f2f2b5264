package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP server
	Server ServerConfig `mapstructure:"server"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Auth
	Auth AuthConfig `mapstructure:"auth"`

	// Shortener
	Shortener ShortenerConfig `mapstructure:"shortener"`

	// URL validation
	Validator ValidatorConfig `mapstructure:"validator"`

	// Rate limiting
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenTTLMin int    `mapstructure:"token_ttl_minutes"`
}

type ShortenerConfig struct {
	CodeLength  int `mapstructure:"code_length"`
	MaxAttempts int `mapstructure:"max_attempts"`
	BulkMaxURLs int `mapstructure:"bulk_max_urls"`
}

type ValidatorConfig struct {
	MaxURLLength   int      `mapstructure:"max_url_length"`
	BlockedDomains []string `mapstructure:"blocked_domains"`
	ProbeEnabled   bool     `mapstructure:"probe_enabled"`
	ProbeStrict    bool     `mapstructure:"probe_strict"`
	ProbeTimeout   string   `mapstructure:"probe_timeout"`
}

// RateLimitPolicy configures one endpoint's fixed window.
type RateLimitPolicy struct {
	Endpoint      string `mapstructure:"endpoint"`
	Requests      int    `mapstructure:"requests"`
	WindowSeconds int    `mapstructure:"window_seconds"`
}

type RateLimitConfig struct {
	FailOpen bool              `mapstructure:"fail_open"`
	Default  RateLimitPolicy   `mapstructure:"default"`
	Policies []RateLimitPolicy `mapstructure:"policies"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("auth.token_ttl_minutes", 60)

	v.SetDefault("shortener.code_length", 7)
	v.SetDefault("shortener.max_attempts", 5)
	v.SetDefault("shortener.bulk_max_urls", 50)

	v.SetDefault("validator.max_url_length", 2048)
	v.SetDefault("validator.probe_enabled", false)
	v.SetDefault("validator.probe_strict", false)
	v.SetDefault("validator.probe_timeout", "3s")

	v.SetDefault("ratelimit.fail_open", false)
	v.SetDefault("ratelimit.default.endpoint", "default")
	v.SetDefault("ratelimit.default.requests", 100)
	v.SetDefault("ratelimit.default.window_seconds", 60)
	v.SetDefault("ratelimit.policies", []map[string]interface{}{
		{"endpoint": "/shorten/", "requests": 10, "window_seconds": 60},
		{"endpoint": "/bulk-shorten/", "requests": 5, "window_seconds": 300},
		{"endpoint": "/analytics/", "requests": 20, "window_seconds": 60},
		{"endpoint": "/auth/login", "requests": 3, "window_seconds": 300},
		{"endpoint": "/auth/register", "requests": 2, "window_seconds": 600},
	})
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.base_url", "BASE_URL")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_ttl_minutes", "JWT_TTL_MINUTES")

	// Rate limiting
	v.BindEnv("ratelimit.fail_open", "RATELIMIT_FAIL_OPEN")
}
