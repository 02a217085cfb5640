package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "VOUCHERBAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Vault    VaultConfig
	Fees     FeesConfig
	Fraud    FraudConfig
	Gateway  GatewayConfig
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
	Env          string `envconfig:"VOUCHERBAY_APP_ENV" required:"true"`
	Port         string `envconfig:"VOUCHERBAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VOUCHERBAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VOUCHERBAY_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"VOUCHERBAY_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VOUCHERBAY_DB_DSN"`
	Driver string `envconfig:"VOUCHERBAY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VOUCHERBAY_DB_HOST"`
	Port     int    `envconfig:"VOUCHERBAY_DB_PORT" default:"5432"`
	User     string `envconfig:"VOUCHERBAY_DB_USER"`
	Password string `envconfig:"VOUCHERBAY_DB_PASSWORD"`
	Name     string `envconfig:"VOUCHERBAY_DB_NAME"`
	SSLMode  string `envconfig:"VOUCHERBAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VOUCHERBAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VOUCHERBAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VOUCHERBAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VOUCHERBAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VOUCHERBAY_REDIS_URL"`
	Address      string        `envconfig:"VOUCHERBAY_REDIS_ADDR"`
	Password     string        `envconfig:"VOUCHERBAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"VOUCHERBAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VOUCHERBAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VOUCHERBAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VOUCHERBAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VOUCHERBAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VOUCHERBAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VOUCHERBAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VOUCHERBAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VOUCHERBAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VOUCHERBAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VOUCHERBAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VOUCHERBAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VOUCHERBAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VOUCHERBAY_ARGON_KEY_LEN" default:"32"`
}

// VaultConfig holds the process-wide secret protecting voucher codes at rest.
type VaultConfig struct {
	Secret string `envconfig:"VOUCHERBAY_VAULT_SECRET" required:"true"`
}

type FeesConfig struct {
	// DefaultPercent applies when a voucher carries no listing-level fee.
	DefaultPercent string `envconfig:"VOUCHERBAY_FEE_DEFAULT_PERCENT" default:"5"`
}

// DefaultFeePercent parses the configured default platform fee.
func (f FeesConfig) DefaultFeePercent() (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(strings.TrimSpace(f.DefaultPercent))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid default fee percent %q: %w", f.DefaultPercent, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("default fee percent %s out of range", pct)
	}
	return pct, nil
}

type FraudConfig struct {
	EscalateRiskScore int           `envconfig:"VOUCHERBAY_FRAUD_ESCALATE_SCORE" default:"60"`
	DenyRiskScore     int           `envconfig:"VOUCHERBAY_FRAUD_DENY_SCORE" default:"85"`
	FailedBuyerLimit  int           `envconfig:"VOUCHERBAY_FRAUD_FAILED_BUYER_LIMIT" default:"3"`
	FailedBuyerWindow time.Duration `envconfig:"VOUCHERBAY_FRAUD_FAILED_BUYER_WINDOW" default:"24h"`
}

// GatewayConfig covers the payment gateway callback surface.
type GatewayConfig struct {
	WebhookSecret string `envconfig:"VOUCHERBAY_GATEWAY_WEBHOOK_SECRET"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"VOUCHERBAY_DB_HOST": db.Host,
		"VOUCHERBAY_DB_USER": db.User,
		"VOUCHERBAY_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either VOUCHERBAY_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
