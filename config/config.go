package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App AppConfig `mapstructure:"app"`

	Log LogConfig `mapstructure:"log"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Outbound link shorteners
	Providers ProvidersConfig `mapstructure:"providers"`

	Purge PurgeConfig `mapstructure:"purge"`

	// Credits ledger table owned by the host panel
	Ledger LedgerConfig `mapstructure:"ledger"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Env             string        `mapstructure:"env"`
	Addr            string        `mapstructure:"addr"`
	URL             string        `mapstructure:"url"`
	PluginID        string        `mapstructure:"plugin_id"`
	IdentitySecret  string        `mapstructure:"identity_secret"`
	IdentityTTL     time.Duration `mapstructure:"identity_ttl"`
	DefaultLanguage string        `mapstructure:"default_language"`
}

// Production reports whether the service runs with production defaults.
func (a AppConfig) Production() bool {
	return strings.EqualFold(a.Env, "production")
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

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
	Port int `mapstructure:"port"`
}

type ProvidersConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	ShareUSBaseURL    string        `mapstructure:"shareus_base_url"`
	GyaniLinksBaseURL string        `mapstructure:"gyanilinks_base_url"`
	LinkPaysBaseURL   string        `mapstructure:"linkpays_base_url"`
	RateLimit         int           `mapstructure:"rate_limit"`
	RateWindow        time.Duration `mapstructure:"rate_window"`
	// SharedLimiter switches provider rate limiting to a Redis counter shared by all instances.
	SharedLimiter bool `mapstructure:"shared_limiter"`
}

type PurgeConfig struct {
	Schedule           string        `mapstructure:"schedule"`
	Interval           time.Duration `mapstructure:"interval"`
	DeletedRetention   time.Duration `mapstructure:"deleted_retention"`
	CompletedRetention time.Duration `mapstructure:"completed_retention"`
}

type LedgerConfig struct {
	Table         string `mapstructure:"table"`
	IDColumn      string `mapstructure:"id_column"`
	CreditsColumn string `mapstructure:"credits_column"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.addr", ":8080")
	v.SetDefault("app.url", "http://localhost:8080")
	v.SetDefault("app.plugin_id", "billinglinks")
	v.SetDefault("app.identity_ttl", "5m")
	v.SetDefault("app.default_language", "en")

	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 7)

	v.SetDefault("providers.timeout", "10s")
	v.SetDefault("providers.user_agent", "LinkRewards/1.0")
	v.SetDefault("providers.shareus_base_url", "https://api.shareus.io")
	v.SetDefault("providers.gyanilinks_base_url", "https://gyanilinks.com")
	v.SetDefault("providers.linkpays_base_url", "https://linkpays.in")
	v.SetDefault("providers.rate_limit", 60)
	v.SetDefault("providers.rate_window", "1m")

	v.SetDefault("purge.schedule", "@every 1h")
	v.SetDefault("purge.interval", "24h")
	v.SetDefault("purge.deleted_retention", "168h")
	v.SetDefault("purge.completed_retention", "720h")

	v.SetDefault("ledger.table", "users")
	v.SetDefault("ledger.id_column", "id")
	v.SetDefault("ledger.credits_column", "credits")

	v.SetDefault("rate_limit.max_requests", 60)
	v.SetDefault("rate_limit.window", "1m")
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.url", "APP_URL")
	v.BindEnv("app.addr", "APP_ADDR")
	v.BindEnv("app.identity_secret", "IDENTITY_SECRET")

	// Logging
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.file", "LOG_FILE")

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

	// Providers
	v.BindEnv("providers.rate_limit", "RATE_LIMIT")
	v.BindEnv("providers.shared_limiter", "PROVIDER_SHARED_LIMITER")
}
