package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Ledger    LedgerConfig
	Recharge  RechargeConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	BcryptCost     int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// SQLitePath is used when Driver is "sqlite"
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

// URL returns the postgres connection URL
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
	// BalanceCacheTTL is how long a user's balances stay cached
	BalanceCacheTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// LedgerConfig holds wallet economy settings
type LedgerConfig struct {
	// VexToGemRate is the default rate applied by Convert when the caller gives none
	VexToGemRate decimal.Decimal
	GemToVexRate decimal.Decimal
	// GiftVexShare is the fraction of a gift's gem cost paid to the receiver in vex
	GiftVexShare         decimal.Decimal
	MinWithdrawal        decimal.Decimal
	PendingTTL           time.Duration
	PendingSweepInterval time.Duration
}

// RechargeConfig holds payment gateway settings
type RechargeConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	UnitPriceCents      int64
	FiatCurrency        string
	MaxGemsPerOrder     int64
}

// RateLimitConfig holds per-user request limits for wallet mutations
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			BcryptCost:     getEnvAsInt("BCRYPT_COST", 12),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "spark"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "spark.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:             getEnv("REDIS_URL", "redis://localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			BalanceCacheTTL: getEnvAsDuration("BALANCE_CACHE_TTL", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Ledger: LedgerConfig{
			VexToGemRate:         getEnvAsDecimal("LEDGER_VEX_TO_GEM_RATE", decimal.RequireFromString("0.1")),
			GemToVexRate:         getEnvAsDecimal("LEDGER_GEM_TO_VEX_RATE", decimal.NewFromInt(10)),
			GiftVexShare:         getEnvAsDecimal("LEDGER_GIFT_VEX_SHARE", decimal.NewFromInt(1)),
			MinWithdrawal:        getEnvAsDecimal("LEDGER_MIN_WITHDRAWAL", decimal.NewFromInt(100)),
			PendingTTL:           getEnvAsDuration("LEDGER_PENDING_TTL", 24*time.Hour),
			PendingSweepInterval: getEnvAsDuration("LEDGER_PENDING_SWEEP_INTERVAL", time.Minute),
		},
		Recharge: RechargeConfig{
			StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			UnitPriceCents:      int64(getEnvAsInt("RECHARGE_UNIT_PRICE_CENTS", 1)),
			FiatCurrency:        strings.ToLower(getEnv("RECHARGE_FIAT_CURRENCY", "usd")),
			MaxGemsPerOrder:     int64(getEnvAsInt("RECHARGE_MAX_GEMS_PER_ORDER", 1000000)),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
