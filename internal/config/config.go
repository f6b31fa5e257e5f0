package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root application configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Reports  ReportConfig
	Storage  StorageConfig
	Notify   NotifyConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT"             env-default:"8080"`
	Env             string        `env:"ENV"              env-default:"local"`
	GinMode         string        `env:"GIN_MODE"         env-default:"debug"`
	CORSOrigin      string        `env:"CORS_ORIGIN"      env-default:"http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig accepts either a full DATABASE_URL or the discrete DB_* keys.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"     env-default:"localhost"`
	User     string `env:"DB_USER"     env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"     env-default:"safetyfirst"`
	Port     string `env:"DB_PORT"     env-default:"5432"`
	SSLMode  string `env:"DB_SSLMODE"  env-default:"disable"`
}

// DSN returns the connection string for the postgres driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `env:"JWT_TTL"    env-default:"24h"`
}

type ReportConfig struct {
	DailyLimit int    `env:"DAILY_REPORT_LIMIT" env-default:"15"`
	Timezone   string `env:"REPORT_TIMEZONE"    env-default:"Asia/Jerusalem"`
}

// Location returns the timezone that defines a reporting day, or UTC when
// the name does not resolve.
func (r ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type StorageConfig struct {
	Backend  string `env:"STORAGE_BACKEND" env-default:"local"`
	Bucket   string `env:"GCS_BUCKET"`
	Dir      string `env:"PHOTO_DIR"       env-default:"uploads"`
	BaseURL  string `env:"PHOTO_BASE_URL"  env-default:"/uploads"`
	MaxBytes int64  `env:"PHOTO_MAX_BYTES" env-default:"10485760"`
}

type NotifyConfig struct {
	SlackToken   string `env:"SLACK_TOKEN"`
	SlackChannel string `env:"SLACK_CHANNEL"`
	Workers      int    `env:"NOTIFY_WORKERS"    env-default:"2"`
	QueueSize    int    `env:"NOTIFY_QUEUE_SIZE" env-default:"100"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  env-default:"INFO"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
	File   string `env:"LOG_FILE"`
}

func (c *Config) IsRelease() bool {
	return c.Server.GinMode == "release"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks business rules and resolves derived fields.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Reports.DailyLimit <= 0 {
		return fmt.Errorf("DAILY_REPORT_LIMIT must be > 0 (got %d)", c.Reports.DailyLimit)
	}
	if _, err := time.LoadLocation(c.Reports.Timezone); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}

	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_BACKEND=gcs")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of gcs, local, memory (got %q)", c.Storage.Backend)
	}
	if c.Storage.MaxBytes <= 0 {
		return fmt.Errorf("PHOTO_MAX_BYTES must be > 0")
	}

	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 1
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 1
	}
	if (c.Notify.SlackToken == "") != (c.Notify.SlackChannel == "") {
		return fmt.Errorf("SLACK_TOKEN and SLACK_CHANNEL must be set together")
	}
	return nil
}
