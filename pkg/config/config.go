package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Orders       OrdersConfig
	Reports      ReportsConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"CHAMANA_APP_ENV" required:"true"`
	Port         string `envconfig:"CHAMANA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CHAMANA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHAMANA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CHAMANA_DB_DSN"`
	Driver string `envconfig:"CHAMANA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CHAMANA_DB_HOST"`
	LegacyPort     int    `envconfig:"CHAMANA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHAMANA_DB_USER"`
	LegacyPassword string `envconfig:"CHAMANA_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHAMANA_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHAMANA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHAMANA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHAMANA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHAMANA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHAMANA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CHAMANA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CHAMANA_REDIS_ADDR"`
	Password     string        `envconfig:"CHAMANA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHAMANA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHAMANA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHAMANA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHAMANA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHAMANA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHAMANA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type OrdersConfig struct {
	// PendingTTL is how long an order may sit in pending before the cron
	// worker cancels it automatically.
	PendingTTL     time.Duration `envconfig:"CHAMANA_ORDERS_PENDING_TTL" default:"240h"`
	CronInterval   time.Duration `envconfig:"CHAMANA_ORDERS_CRON_INTERVAL" default:"1h"`
	IdempotencyTTL time.Duration `envconfig:"CHAMANA_ORDERS_IDEMPOTENCY_TTL" default:"168h"`
}

type ReportsConfig struct {
	// DefaultCommissionRate is a decimal string, e.g. "0.10" for 10%.
	DefaultCommissionRate string `envconfig:"CHAMANA_REPORTS_COMMISSION_RATE" default:"0.10"`
	LowStockThreshold     int    `envconfig:"CHAMANA_REPORTS_LOW_STOCK_THRESHOLD" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CHAMANA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
