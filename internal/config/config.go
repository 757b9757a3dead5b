package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	Database  DatabaseConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Redis     RedisConfig
	Email     EmailConfig
	PDF       PDFConfig

	Bootstrap BootstrapConfig
}

type DatabaseConfig struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	// Path is the sqlite file; ignored by the other dialects.
	Path string

	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowQuery       time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type TelemetryConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type PDFConfig struct {
	Enabled bool
}

// BootstrapConfig seeds the first owner API key on startup.
type BootstrapConfig struct {
	OwnerID int64
	APIKey  string
	Role    string
}

// Load reads the environment, after merging a local .env file when present.
func Load() Config {
	_ = godotenv.Load()

	protocol := lower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))
	if traces := lower(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = traces
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "bizadmin"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		NodeID:      getenvInt64("SNOWFLAKE_NODE", 1),
		Database: DatabaseConfig{
			Type:            lower(getenv("DATABASE_TYPE", "postgres")),
			Host:            getenv("DATABASE_HOST", "localhost"),
			Port:            getenv("DATABASE_PORT", "5432"),
			Name:            getenv("DATABASE_NAME", "bizadmin"),
			User:            getenv("DATABASE_USER", "postgres"),
			Password:        getenv("DATABASE_PASSWORD", ""),
			SSLMode:         getenv("DATABASE_SSLMODE", "disable"),
			Path:            getenv("DATABASE_PATH", "bizadmin.db"),
			MaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
			MaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
			ConnMaxLifetime: getenvSeconds("DATABASE_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getenvSeconds("DATABASE_CONN_MAX_IDLE_TIME", 60),
			SlowQuery:       time.Duration(getenvInt64("DATABASE_SLOW_QUERY_MS", 200)) * time.Millisecond,
		},
		Log: LogConfig{
			Level:  lower(getenv("LOG_LEVEL", "info")),
			Format: lower(getenv("LOG_FORMAT", "json")),
		},
		Telemetry: TelemetryConfig{
			Enabled:       getenvBool("OTEL_ENABLED", false),
			Endpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Protocol:      protocol,
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", "localhost"),
			SMTPPort:     int(getenvInt64("SMTP_PORT", 1025)),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "facturen@example.com"),
		},
		PDF: PDFConfig{
			Enabled: getenvBool("PDF_ENABLED", true),
		},
		Bootstrap: BootstrapConfig{
			OwnerID: getenvInt64("DEFAULT_OWNER", 0),
			APIKey:  strings.TrimSpace(getenv("BOOTSTRAP_API_KEY", "")),
			Role:    lower(getenv("BOOTSTRAP_ROLE", "admin")),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// IsDevelopment covers the environments where verbose diagnostics are wanted.
func (c Config) IsDevelopment() bool {
	switch lower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return c.Log.Level == "debug"
}

func lower(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch lower(os.Getenv(key)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvSeconds(key string, def int64) time.Duration {
	return time.Duration(getenvInt64(key, def)) * time.Second
}
