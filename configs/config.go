package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
)

// ErrInvalidConfig is returned by Validate for settings the service cannot
// start with. It is the same sentinel the limiter and credential services use,
// so callers only need to test for ratelimit.ErrConfiguration.
var ErrInvalidConfig = ratelimit.ErrConfiguration

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Login     LoginConfig
	Password  PasswordConfig
	Sentry    SentryConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	Version        string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	DSN            string
	MigrationsPath string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type JWTConfig struct {
	Secret         string
	Algorithm      string
	AccessTokenTTL time.Duration
	Issuer         string
	// ClockSkew is the leeway allowed on exp and iat between instances.
	ClockSkew time.Duration
}

type RedisConfig struct {
	URL          string
	Host         string
	Port         string
	Password     string
	DB           int
	ClusterAddrs []string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// RateLimitRule is one (limit, window) threshold.
type RateLimitRule struct {
	Limit  int
	Window time.Duration
}

type RateLimitConfig struct {
	KeyPrefix    string
	LoginIP      RateLimitRule
	LoginEmail   RateLimitRule
	RegisterIP   RateLimitRule
	Atomic       bool
	FailOpen     bool
	StoreTimeout time.Duration
	RetryBackoff time.Duration
}

type LoginConfig struct {
	LookupTimeout   time.Duration
	AccountCacheTTL time.Duration
}

type PasswordConfig struct {
	Hasher     string // bcrypt or argon2id
	BcryptCost int
	MinLength  int
}

type SentryConfig struct {
	DSN string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8001"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
			Environment:    getEnv("APP_ENV", "development"),
			Version:        getEnv("APP_VERSION", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "auth_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			DSN:             getEnv("DATABASE_URL", ""),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "./migrations"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", ""),
			Algorithm:      getEnv("JWT_ALGORITHM", "HS256"),
			AccessTokenTTL: time.Duration(getIntEnv("JWT_EXP_MINUTES", 30)) * time.Minute,
			Issuer:         getEnv("JWT_ISSUER", ""),
			ClockSkew:      getDurationEnv("JWT_CLOCK_SKEW", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			ClusterAddrs: getListEnv("REDIS_CLUSTER_ADDRS"),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			KeyPrefix: getEnv("RATE_LIMIT_KEY_PREFIX", "rl:auth"),
			LoginIP: RateLimitRule{
				Limit:  getIntEnv("RATE_LIMIT_LOGIN_IP_LIMIT", 20),
				Window: getDurationEnv("RATE_LIMIT_LOGIN_IP_WINDOW", time.Minute),
			},
			LoginEmail: RateLimitRule{
				Limit:  getIntEnv("RATE_LIMIT_LOGIN_EMAIL_LIMIT", 10),
				Window: getDurationEnv("RATE_LIMIT_LOGIN_EMAIL_WINDOW", time.Minute),
			},
			RegisterIP: RateLimitRule{
				Limit:  getIntEnv("RATE_LIMIT_REGISTER_IP_LIMIT", 10),
				Window: getDurationEnv("RATE_LIMIT_REGISTER_IP_WINDOW", time.Minute),
			},
			Atomic:       getBoolEnv("RATE_LIMIT_ATOMIC", true),
			FailOpen:     getBoolEnv("RATE_LIMIT_FAIL_OPEN", false),
			StoreTimeout: getDurationEnv("RATE_LIMIT_STORE_TIMEOUT", 250*time.Millisecond),
			RetryBackoff: getDurationEnv("RATE_LIMIT_RETRY_BACKOFF", 25*time.Millisecond),
		},
		Login: LoginConfig{
			LookupTimeout:   getDurationEnv("LOGIN_LOOKUP_TIMEOUT", 2*time.Second),
			AccountCacheTTL: getDurationEnv("ACCOUNT_CACHE_TTL", time.Minute),
		},
		Password: PasswordConfig{
			Hasher:     strings.ToLower(getEnv("PASSWORD_HASHER", "bcrypt")),
			BcryptCost: getIntEnv("PASSWORD_BCRYPT_COST", 10),
			MinLength:  getIntEnv("PASSWORD_MIN_LENGTH", 8),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
	}

	// Build database DSN unless a full URL was given
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName,
			cfg.Database.SSLMode,
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would make the limiter or the credential
// issuer unusable.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalidConfig)
	}
	switch strings.ToUpper(c.JWT.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("%w: unsupported JWT_ALGORITHM %q", ErrInvalidConfig, c.JWT.Algorithm)
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("%w: JWT_EXP_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.JWT.ClockSkew < 0 {
		return fmt.Errorf("%w: JWT_CLOCK_SKEW must not be negative", ErrInvalidConfig)
	}
	for name, rule := range map[string]RateLimitRule{
		"login ip":    c.RateLimit.LoginIP,
		"login email": c.RateLimit.LoginEmail,
		"register ip": c.RateLimit.RegisterIP,
	} {
		if rule.Limit <= 0 || rule.Window < time.Second || rule.Window%time.Second != 0 {
			return fmt.Errorf("%w: %s rate limit needs a positive limit and a whole number of seconds as window", ErrInvalidConfig, name)
		}
	}
	if c.RateLimit.StoreTimeout <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_STORE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	switch c.Password.Hasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("%w: unsupported PASSWORD_HASHER %q", ErrInvalidConfig, c.Password.Hasher)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty items.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
