package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Logger LoggerConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration

	Gateway   GatewayConfig
	Reconcile ReconcileConfig

	RedisAddr string
}

type LoggerConfig struct {
	Level string
}

// GatewayConfig selects and configures the payment gateway adapter.
type GatewayConfig struct {
	Provider   string
	BaseURL    string
	MerchantID string
	Secret     string
	Timeout    time.Duration
}

// ReconcileConfig controls the periodic reconciliation sweep.
type ReconcileConfig struct {
	Interval      time.Duration
	BatchSize     int
	PendingMaxAge time.Duration
	JobTimeout    time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_SERVICE", "bookpay")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "bookpay")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE_MAX_OPEN_CONN", 25)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("GATEWAY_PROVIDER", "sandbox")
	v.SetDefault("GATEWAY_BASE_URL", "")
	v.SetDefault("GATEWAY_MERCHANT_ID", "")
	v.SetDefault("GATEWAY_SECRET", "")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")

	v.SetDefault("RECONCILE_INTERVAL", "1m")
	v.SetDefault("RECONCILE_BATCH_SIZE", 50)
	v.SetDefault("RECONCILE_PENDING_MAX_AGE", "15m")
	v.SetDefault("RECONCILE_JOB_TIMEOUT", "5m")

	v.SetDefault("REDIS_ADDR", "")

	return Config{
		AppName:     v.GetString("APP_SERVICE"),
		AppVersion:  v.GetString("APP_VERSION"),
		Environment: v.GetString("ENVIRONMENT"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		Logger: LoggerConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		DBType:            strings.ToLower(v.GetString("DATABASE_TYPE")),
		DBHost:            v.GetString("DATABASE_HOST"),
		DBPort:            v.GetString("DATABASE_PORT"),
		DBName:            v.GetString("DATABASE_NAME"),
		DBUser:            v.GetString("DATABASE_USER"),
		DBPassword:        v.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         v.GetString("DATABASE_SSLMODE"),
		DBMaxIdleConn:     v.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     v.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		Gateway: GatewayConfig{
			Provider:   strings.ToLower(v.GetString("GATEWAY_PROVIDER")),
			BaseURL:    strings.TrimRight(v.GetString("GATEWAY_BASE_URL"), "/"),
			MerchantID: strings.TrimSpace(v.GetString("GATEWAY_MERCHANT_ID")),
			Secret:     strings.TrimSpace(v.GetString("GATEWAY_SECRET")),
			Timeout:    v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Reconcile: ReconcileConfig{
			Interval:      v.GetDuration("RECONCILE_INTERVAL"),
			BatchSize:     v.GetInt("RECONCILE_BATCH_SIZE"),
			PendingMaxAge: v.GetDuration("RECONCILE_PENDING_MAX_AGE"),
			JobTimeout:    v.GetDuration("RECONCILE_JOB_TIMEOUT"),
		},
		RedisAddr: strings.TrimSpace(v.GetString("REDIS_ADDR")),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Module wires configuration loading for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
)
