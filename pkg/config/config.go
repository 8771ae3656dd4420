package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "RIGBUILDER_APP_ENV"
	EnvDBDSN     = "RIGBUILDER_DB_DSN"
	EnvRedisURL  = "RIGBUILDER_REDIS_URL"
	EnvJWTSecret = "RIGBUILDER_JWT_SECRET"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Checkout      CheckoutConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RIGBUILDER_APP_ENV" required:"true"`
	Port         string `envconfig:"RIGBUILDER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RIGBUILDER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RIGBUILDER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"RIGBUILDER_DB_DSN"`

	Host     string `envconfig:"RIGBUILDER_DB_HOST"`
	Port     int    `envconfig:"RIGBUILDER_DB_PORT" default:"5432"`
	User     string `envconfig:"RIGBUILDER_DB_USER"`
	Password string `envconfig:"RIGBUILDER_DB_PASSWORD"`
	Name     string `envconfig:"RIGBUILDER_DB_NAME"`
	SSLMode  string `envconfig:"RIGBUILDER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RIGBUILDER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RIGBUILDER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RIGBUILDER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RIGBUILDER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either RIGBUILDER_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"RIGBUILDER_REDIS_URL"`
	Address      string        `envconfig:"RIGBUILDER_REDIS_ADDR"`
	Password     string        `envconfig:"RIGBUILDER_REDIS_PASSWORD"`
	DB           int           `envconfig:"RIGBUILDER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RIGBUILDER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RIGBUILDER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RIGBUILDER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RIGBUILDER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RIGBUILDER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RIGBUILDER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RIGBUILDER_JWT_ISSUER" default:"rigbuilder"`
	ExpirationMinutes      int    `envconfig:"RIGBUILDER_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"RIGBUILDER_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RIGBUILDER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RIGBUILDER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RIGBUILDER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RIGBUILDER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RIGBUILDER_ARGON_KEY_LEN" default:"32"`

	ResetTokenTTL time.Duration `envconfig:"RIGBUILDER_PASSWORD_RESET_TOKEN_TTL" default:"30m"`
}

// AuthRateLimitConfig carries the per-deployment attempt budgets for the
// authentication surfaces. Both are fixed windows (see internal/ratelimit).
type AuthRateLimitConfig struct {
	LoginLimit           int           `envconfig:"RIGBUILDER_AUTH_RATE_LIMIT_LOGIN_ATTEMPTS" default:"5"`
	LoginWindow          time.Duration `envconfig:"RIGBUILDER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	ForgotPasswordLimit  int           `envconfig:"RIGBUILDER_AUTH_RATE_LIMIT_FORGOT_ATTEMPTS" default:"3"`
	ForgotPasswordWindow time.Duration `envconfig:"RIGBUILDER_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"5m"`
}

type CheckoutConfig struct {
	// ReorderPrefillTTL bounds how long a reorder stays staged for the
	// builder page before it silently expires.
	ReorderPrefillTTL time.Duration `envconfig:"RIGBUILDER_CHECKOUT_REORDER_PREFILL_TTL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RIGBUILDER_AUTO_MIGRATE" default:"false"`
}
