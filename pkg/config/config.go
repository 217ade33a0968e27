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
	Env          string `envconfig:"SHUTTLE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHUTTLE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHUTTLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHUTTLE_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string      `envconfig:"SHUTTLE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTTLE_APP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHUTTLE_DB_DSN"`
	Driver string `envconfig:"SHUTTLE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHUTTLE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHUTTLE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHUTTLE_DB_USER"`
	LegacyPassword string `envconfig:"SHUTTLE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHUTTLE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHUTTLE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHUTTLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHUTTLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHUTTLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHUTTLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// QueryTimeout bounds every repository round trip when the caller has no deadline.
	QueryTimeout time.Duration `envconfig:"SHUTTLE_DB_QUERY_TIMEOUT" default:"5s"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHUTTLE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	switch strings.ToLower(db.Driver) {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}

	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
