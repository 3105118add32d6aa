package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates runtime configuration for the artifactdrive API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Notify   NotifyConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes bounds the multipart body held in memory before spilling to disk.
	MaxUploadBytes int64
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MigrationURL returns the DSN in the form golang-migrate's pgx/v5 driver expects.
func (p PostgresConfig) MigrationURL() string {
	return "pgx5" + strings.TrimPrefix(p.DSN(), "postgres")
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	// PresignTTL is the lifetime of generated download links.
	PresignTTL time.Duration
}

// AuthConfig holds the publisher API key and the support staff login.
type AuthConfig struct {
	// APIKeyHash is the bcrypt hash of the key release publishers send.
	APIKeyHash string

	AdminEmail        string
	AdminPasswordHash string
	// TokenSecret signs staff access tokens (HS256).
	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string
}

// CacheConfig selects and sizes the latest-release cache.
// A non-empty RedisAddr switches from the in-process LRU to Redis.
type CacheConfig struct {
	Size          int
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NotifyConfig configures ticket notifications. An empty SMTPHost logs instead of sending.
type NotifyConfig struct {
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	From           string
	SupportAddress string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

const minTokenSecretLength = 32

var defaults = map[string]any{
	"API_HOST":             "0.0.0.0",
	"API_PORT":             8080,
	"API_READ_TIMEOUT":     "60s",
	"API_WRITE_TIMEOUT":    "10m",
	"API_IDLE_TIMEOUT":     "60s",
	"API_SHUTDOWN_TIMEOUT": "15s",
	"API_MAX_UPLOAD_BYTES": 32 << 20,

	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     5432,
	"POSTGRES_USER":     "artifactdrive",
	"POSTGRES_PASSWORD": "change-me",
	"POSTGRES_DB":       "artifactdrive",
	"POSTGRES_SSL_MODE": "disable",

	"MINIO_ENDPOINT":      "localhost:9000",
	"MINIO_ROOT_USER":     "artifactdrive",
	"MINIO_ROOT_PASSWORD": "change-me-strong-password",
	"MINIO_BUCKET":        "artifactdrive",
	"MINIO_USE_SSL":       false,
	"MINIO_REGION":        "",
	"MINIO_PRESIGN_TTL":   "15m",

	"AUTH_API_KEY_HASH":        "",
	"AUTH_ADMIN_EMAIL":         "",
	"AUTH_ADMIN_PASSWORD_HASH": "",
	"AUTH_TOKEN_SECRET":        "",
	"AUTH_TOKEN_TTL":           "60m",
	"AUTH_TOKEN_ISSUER":        "artifactdrive",

	"CACHE_SIZE":           16,
	"CACHE_TTL":            "5m",
	"CACHE_REDIS_ADDR":     "",
	"CACHE_REDIS_PASSWORD": "",
	"CACHE_REDIS_DB":       0,

	"SMTP_HOST":              "",
	"SMTP_PORT":              587,
	"SMTP_USER":              "",
	"SMTP_PASSWORD":          "",
	"NOTIFY_FROM":            "noreply@artifactdrive.local",
	"NOTIFY_SUPPORT_ADDRESS": "",

	"METRICS_PATH": "/metrics",
}

// Load reads configuration from the environment, applying defaults.
// Callers load .env files before calling Load.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := Config{
		Server: ServerConfig{
			Host:            v.GetString("API_HOST"),
			Port:            v.GetInt("API_PORT"),
			ReadTimeout:     v.GetDuration("API_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("API_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("API_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("API_SHUTDOWN_TIMEOUT"),
			MaxUploadBytes:  v.GetInt64("API_MAX_UPLOAD_BYTES"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Database: v.GetString("POSTGRES_DB"),
			SSLMode:  strings.ToLower(v.GetString("POSTGRES_SSL_MODE")),
		},
		MinIO: MinIOConfig{
			Endpoint:        v.GetString("MINIO_ENDPOINT"),
			AccessKeyID:     v.GetString("MINIO_ROOT_USER"),
			SecretAccessKey: v.GetString("MINIO_ROOT_PASSWORD"),
			Bucket:          v.GetString("MINIO_BUCKET"),
			UseSSL:          v.GetBool("MINIO_USE_SSL"),
			Region:          v.GetString("MINIO_REGION"),
			PresignTTL:      v.GetDuration("MINIO_PRESIGN_TTL"),
		},
		Auth: AuthConfig{
			APIKeyHash:        strings.TrimSpace(v.GetString("AUTH_API_KEY_HASH")),
			AdminEmail:        strings.ToLower(strings.TrimSpace(v.GetString("AUTH_ADMIN_EMAIL"))),
			AdminPasswordHash: strings.TrimSpace(v.GetString("AUTH_ADMIN_PASSWORD_HASH")),
			TokenSecret:       v.GetString("AUTH_TOKEN_SECRET"),
			TokenTTL:          v.GetDuration("AUTH_TOKEN_TTL"),
			TokenIssuer:       v.GetString("AUTH_TOKEN_ISSUER"),
		},
		Cache: CacheConfig{
			Size:          v.GetInt("CACHE_SIZE"),
			TTL:           v.GetDuration("CACHE_TTL"),
			RedisAddr:     v.GetString("CACHE_REDIS_ADDR"),
			RedisPassword: v.GetString("CACHE_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("CACHE_REDIS_DB"),
		},
		Notify: NotifyConfig{
			SMTPHost:       v.GetString("SMTP_HOST"),
			SMTPPort:       v.GetInt("SMTP_PORT"),
			SMTPUser:       v.GetString("SMTP_USER"),
			SMTPPassword:   v.GetString("SMTP_PASSWORD"),
			From:           v.GetString("NOTIFY_FROM"),
			SupportAddress: v.GetString("NOTIFY_SUPPORT_ADDRESS"),
		},
		Metrics: MetricsConfig{
			PrometheusPath: v.GetString("METRICS_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT out of range: %d", c.Server.Port))
	}
	if c.MinIO.Bucket == "" {
		errs = append(errs, errors.New("MINIO_BUCKET is required"))
	}
	if c.MinIO.PresignTTL <= 0 || c.MinIO.PresignTTL > 7*24*time.Hour {
		errs = append(errs, fmt.Errorf("MINIO_PRESIGN_TTL must be between 1s and 7 days, got %s", c.MinIO.PresignTTL))
	}
	if c.Auth.APIKeyHash == "" {
		errs = append(errs, errors.New("AUTH_API_KEY_HASH is required"))
	}
	if c.Auth.AdminEmail == "" || c.Auth.AdminPasswordHash == "" {
		errs = append(errs, errors.New("AUTH_ADMIN_EMAIL and AUTH_ADMIN_PASSWORD_HASH are required"))
	}
	if len(c.Auth.TokenSecret) < minTokenSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes", minTokenSecretLength))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size))
	}
	return errors.Join(errs...)
}
