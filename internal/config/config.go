package config

import (
	"fmt"
	"net/url"
	"time"

	infraconfig "github.com/jonesrussell/feedback-api/infrastructure/config"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Detection strategies.
const (
	DetectionPattern = "pattern"
	DetectionDOM     = "dom"
)

// Default configuration values.
const (
	defaultServiceName  = "feedback-api"
	defaultServicePort  = 3000
	defaultVersion      = "1.0.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"

	defaultDBDriver       = DriverPostgres
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBName         = "feedback"
	defaultDBUser         = "postgres"
	defaultDBSSLMode      = "disable"
	defaultSQLitePath     = "feedback.db"
	defaultMaxOpenConns   = 25
	defaultMaxIdleConns   = 5
	defaultConnMaxLifeMin = 5

	defaultRedisAddress    = "localhost:6379"
	defaultProjectCacheTTL = 5 * time.Minute

	defaultGeneralPerMinute  = 100
	defaultFeedbackPerMinute = 30
	defaultSnapshotPerMinute = 60

	defaultMaxBodyBytes = 5 << 20
	defaultLockTimeout  = 5 * time.Second

	defaultPprofPort = "6060"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Snapshots SnapshotConfig  `yaml:"snapshots"`
	Profiling ProfilingConfig `yaml:"profiling"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `env:"APP_VERSION" yaml:"version"`
	Port    int    `env:"PORT"        yaml:"port"`
	// Debug switches Gin to debug mode and exposes internal error text in 500 responses.
	Debug        bool     `env:"APP_DEBUG"    yaml:"debug"`
	Environment  string   `env:"APP_ENV"      yaml:"environment"`
	CORSOrigins  []string `env:"CORS_ORIGINS" yaml:"cors_origins"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// DatabaseConfig selects and configures the SQL backend.
type DatabaseConfig struct {
	Driver          string        `env:"DATABASE_DRIVER"   yaml:"driver"`
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode         string        `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	Path            string        `env:"SQLITE_PATH"       yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MigrateURL returns the PostgreSQL URL form used by golang-migrate.
func (d *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Database,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// RedisConfig enables the project cache and the distributed snapshot lock.
type RedisConfig struct {
	Enabled         bool          `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address         string        `env:"REDIS_ADDRESS"  yaml:"address"`
	Password        string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB              int           `env:"REDIS_DB"       yaml:"db"`
	ProjectCacheTTL time.Duration `yaml:"project_cache_ttl"`
}

// AuthConfig controls API-key and admin authentication.
type AuthConfig struct {
	// AllowMissingOrigin admits API-key requests without an Origin header.
	AllowMissingOrigin   *bool  `yaml:"allow_missing_origin"`
	SkipOriginValidation bool   `env:"SKIP_ORIGIN_VALIDATION" yaml:"skip_origin_validation"`
	AdminAPIKey          string `env:"ADMIN_API_KEY"          yaml:"admin_api_key"`
	JWTSecret            string `env:"AUTH_JWT_SECRET"        yaml:"jwt_secret"`
}

// MissingOriginAllowed reports the effective allow_missing_origin setting.
func (a *AuthConfig) MissingOriginAllowed() bool {
	return a.AllowMissingOrigin == nil || *a.AllowMissingOrigin
}

// RateLimitConfig holds per-IP request budgets per minute.
type RateLimitConfig struct {
	GeneralPerMinute  int `yaml:"general_per_minute"`
	FeedbackPerMinute int `yaml:"feedback_per_minute"`
	SnapshotPerMinute int `yaml:"snapshot_per_minute"`
}

// SnapshotConfig configures change detection.
type SnapshotConfig struct {
	DetectionStrategy string        `env:"DETECTION_STRATEGY" yaml:"detection_strategy"`
	SerializePerKey   *bool         `yaml:"serialize_per_key"`
	LockTimeout       time.Duration `yaml:"lock_timeout"`
}

// SerializationEnabled reports the effective serialize_per_key setting.
func (s *SnapshotConfig) SerializationEnabled() bool {
	return s.SerializePerKey == nil || *s.SerializePerKey
}

// ProfilingConfig enables pprof and Pyroscope.
type ProfilingConfig struct {
	PprofEnabled     bool   `env:"ENABLE_PROFILING"            yaml:"pprof_enabled"`
	PprofPort        string `env:"PPROF_PORT"                  yaml:"pprof_port"`
	PyroscopeEnabled bool   `env:"ENABLE_CONTINUOUS_PROFILING" yaml:"pyroscope_enabled"`
	PyroscopeURL     string `env:"PYROSCOPE_SERVER_URL"        yaml:"pyroscope_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRedisDefaults(&cfg.Redis)
	setRateLimitDefaults(&cfg.RateLimit)
	setSnapshotDefaults(&cfg.Snapshots)
	setProfilingDefaults(&cfg.Profiling)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.Environment == "" {
		svc.Environment = "development"
	}
	if svc.MaxBodyBytes == 0 {
		svc.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Driver == "" {
		db.Driver = defaultDBDriver
	}
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
	if db.Path == "" {
		db.Path = defaultSQLitePath
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = defaultMaxOpenConns
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = defaultMaxIdleConns
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = defaultConnMaxLifeMin * time.Minute
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
	if r.ProjectCacheTTL == 0 {
		r.ProjectCacheTTL = defaultProjectCacheTTL
	}
}

func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.GeneralPerMinute == 0 {
		rl.GeneralPerMinute = defaultGeneralPerMinute
	}
	if rl.FeedbackPerMinute == 0 {
		rl.FeedbackPerMinute = defaultFeedbackPerMinute
	}
	if rl.SnapshotPerMinute == 0 {
		rl.SnapshotPerMinute = defaultSnapshotPerMinute
	}
}

func setSnapshotDefaults(s *SnapshotConfig) {
	if s.DetectionStrategy == "" {
		s.DetectionStrategy = DetectionPattern
	}
	if s.LockTimeout == 0 {
		s.LockTimeout = defaultLockTimeout
	}
}

func setProfilingDefaults(p *ProfilingConfig) {
	if p.PprofPort == "" {
		p.PprofPort = defaultPprofPort
	}
	if p.PyroscopeURL == "" {
		p.PyroscopeURL = "http://pyroscope:4040"
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateOneOf("database.driver", c.Database.Driver, DriverPostgres, DriverSQLite); err != nil {
		return err
	}
	if c.Database.Driver == DriverPostgres {
		if err := infraconfig.ValidatePort("database.port", c.Database.Port); err != nil {
			return err
		}
	}
	if c.Redis.Enabled {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	if err := infraconfig.ValidateOneOf(
		"snapshots.detection_strategy", c.Snapshots.DetectionStrategy, DetectionPattern, DetectionDOM,
	); err != nil {
		return err
	}
	if c.RateLimit.GeneralPerMinute < 0 || c.RateLimit.FeedbackPerMinute < 0 || c.RateLimit.SnapshotPerMinute < 0 {
		return &infraconfig.ValidationError{Field: "rate_limit", Message: "limits must not be negative"}
	}
	return infraconfig.ValidateLogLevel(c.Logging.Level)
}
