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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Availability AvailabilityConfig
	Calendar     CalendarConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Calendar.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LENDINGLIB_APP_ENV" required:"true"`
	Port         string `envconfig:"LENDINGLIB_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LENDINGLIB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LENDINGLIB_LOG_WARN_STACK" default:"false"`
	// comma separated
	CORSOrigins []string `envconfig:"LENDINGLIB_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LENDINGLIB_DB_DSN"`
	Driver string `envconfig:"LENDINGLIB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LENDINGLIB_DB_HOST"`
	LegacyPort     int    `envconfig:"LENDINGLIB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LENDINGLIB_DB_USER"`
	LegacyPassword string `envconfig:"LENDINGLIB_DB_PASSWORD"`
	LegacyName     string `envconfig:"LENDINGLIB_DB_NAME"`
	LegacySSLMode  string `envconfig:"LENDINGLIB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LENDINGLIB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LENDINGLIB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LENDINGLIB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LENDINGLIB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LENDINGLIB_REDIS_URL"`
	Address      string        `envconfig:"LENDINGLIB_REDIS_ADDR"`
	Password     string        `envconfig:"LENDINGLIB_REDIS_PASSWORD"`
	DB           int           `envconfig:"LENDINGLIB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LENDINGLIB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LENDINGLIB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LENDINGLIB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LENDINGLIB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LENDINGLIB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"LENDINGLIB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LENDINGLIB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LENDINGLIB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LENDINGLIB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LENDINGLIB_AUTO_MIGRATE" default:"false"`
}

type AvailabilityConfig struct {
	UrgentWindowDays     int           `envconfig:"LENDINGLIB_AVAILABILITY_URGENT_WINDOW_DAYS" default:"3"`
	ReconcileInterval    time.Duration `envconfig:"LENDINGLIB_AVAILABILITY_RECONCILE_INTERVAL" default:"24h"`
	ReconcileOnStartup   bool          `envconfig:"LENDINGLIB_AVAILABILITY_RECONCILE_ON_STARTUP" default:"true"`
	MarkMalformedUnknown bool          `envconfig:"LENDINGLIB_AVAILABILITY_MARK_MALFORMED_UNKNOWN" default:"false"`
}

type CalendarConfig struct {
	TimeZone      string `envconfig:"LENDINGLIB_CALENDAR_TIMEZONE" default:"Local"`
	RetentionDays int    `envconfig:"LENDINGLIB_CALENDAR_RETENTION_DAYS" default:"365"`
}

// Location resolves the configured calendar time zone.
func (c CalendarConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.TimeZone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s %q: %w", EnvCalendarTimeZone, name, err)
	}
	return loc, nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
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
