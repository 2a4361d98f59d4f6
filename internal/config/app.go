package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Ledger configures the remote accounting system client.
type Ledger struct {
	BaseURL                  string  `mapstructure:"base_url"`
	TokenURL                 string  `mapstructure:"token_url"`
	ClientID                 string  `mapstructure:"client_id"`
	ClientSecret             string  `mapstructure:"client_secret"`
	MinorVersion             string  `mapstructure:"minor_version"`
	RefreshThresholdHours    float64 `mapstructure:"refresh_threshold_hours"`
	RemoteCallTimeoutSeconds int     `mapstructure:"remote_call_timeout_seconds"`
	MaxConflictRetries       int     `mapstructure:"max_conflict_retries"`
	ThrottleRetries          int     `mapstructure:"throttle_retries"`
}

func (l Ledger) RefreshThreshold() time.Duration {
	return time.Duration(l.RefreshThresholdHours * float64(time.Hour))
}

func (l Ledger) RemoteCallTimeout() time.Duration {
	return time.Duration(l.RemoteCallTimeoutSeconds) * time.Second
}

type Sync struct {
	TenantConcurrencyLimit int      `mapstructure:"tenant_concurrency_limit"`
	HealthCacheSize        int64    `mapstructure:"health_cache_size"`
	SupportedCurrencies    []string `mapstructure:"supported_currencies"`
}

type Scheduler struct {
	Enabled  bool   `mapstructure:"enabled"`
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AppConfig struct {
	HTTPServer HTTPServer `mapstructure:"http_server"`
	DbServer   DbServer   `mapstructure:"db_server"`
	HTTPClient HTTPClient `mapstructure:"http_client"`
	Logging    Logging    `mapstructure:"logging"`
	Ledger     Ledger     `mapstructure:"ledger"`
	Sync       Sync       `mapstructure:"sync"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Kafka      Kafka      `mapstructure:"kafka"`
}

func Init() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return Load(viper.New(), path)
}

// Load reads the yaml file at path into v, applies defaults and env overrides.
func Load(v *viper.Viper, path string) (*AppConfig, error) {
	var cfg AppConfig

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// list env vars come in as a single comma separated string
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Sync.SupportedCurrencies = splitList(cfg.Sync.SupportedCurrencies)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_server.port", "8080")
	v.SetDefault("db_server.max_conns", 10)
	v.SetDefault("http_client.timeout_seconds", 30)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("ledger.base_url", "https://sandbox-quickbooks.api.intuit.com")
	v.SetDefault("ledger.token_url", "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer")
	v.SetDefault("ledger.minor_version", "75")
	v.SetDefault("ledger.refresh_threshold_hours", 0.25)
	v.SetDefault("ledger.remote_call_timeout_seconds", 15)
	v.SetDefault("ledger.max_conflict_retries", 1)
	v.SetDefault("ledger.throttle_retries", 2)

	v.SetDefault("sync.tenant_concurrency_limit", 4)
	v.SetDefault("sync.health_cache_size", 1024)
	// published by the Bank of Albania
	v.SetDefault("sync.supported_currencies", []string{
		"USD", "EUR", "GBP", "CHF", "JPY", "AUD", "CAD", "SEK", "NOK", "DKK",
		"XAU", "XAG", "CNY", "TRY", "BGN", "HUF", "RUB", "CZK", "MKD",
	})

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "0 9 * * 1-5")
	v.SetDefault("scheduler.timezone", "Europe/Tirane")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "fxledger.sync-events")
}

func bindEnv(v *viper.Viper) {
	// http server env vars
	_ = v.BindEnv("http_server.port", "HTTP_PORT")

	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// http client env vars
	_ = v.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")

	// ledger env vars
	_ = v.BindEnv("ledger.base_url", "LEDGER_BASE_URL")
	_ = v.BindEnv("ledger.token_url", "LEDGER_TOKEN_URL")
	_ = v.BindEnv("ledger.client_id", "LEDGER_CLIENT_ID")
	_ = v.BindEnv("ledger.client_secret", "LEDGER_CLIENT_SECRET")
	_ = v.BindEnv("ledger.refresh_threshold_hours", "LEDGER_REFRESH_THRESHOLD_HOURS")
	_ = v.BindEnv("ledger.remote_call_timeout_seconds", "LEDGER_REMOTE_CALL_TIMEOUT_SECONDS")

	_ = v.BindEnv("sync.tenant_concurrency_limit", "SYNC_TENANT_CONCURRENCY_LIMIT")
	_ = v.BindEnv("sync.supported_currencies", "SYNC_SUPPORTED_CURRENCIES")

	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.cron", "SCHEDULER_CRON")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	_ = v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	_ = v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("kafka.topic", "KAFKA_TOPIC")
}

func (c *AppConfig) validate() error {
	if c.Ledger.MaxConflictRetries < 0 {
		return fmt.Errorf("ledger.max_conflict_retries must not be negative, got %d", c.Ledger.MaxConflictRetries)
	}
	if c.Ledger.RefreshThresholdHours < 0 {
		return fmt.Errorf("ledger.refresh_threshold_hours must not be negative, got %v", c.Ledger.RefreshThresholdHours)
	}
	if c.Sync.TenantConcurrencyLimit <= 0 {
		return fmt.Errorf("sync.tenant_concurrency_limit must be positive, got %d", c.Sync.TenantConcurrencyLimit)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}
