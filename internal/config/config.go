package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresURL        string
	DBMaxOpenConns     int
	Port               string
	JWTSecret          []byte
	KafkaBrokers       []string
	OTLPEndpoint       string
	LogLevel           slog.Level
	CORSAllowedOrigins []string
	ServiceVersion     string
}

// Load reads configuration from the environment. Values in a .env file in the
// working directory are applied first without overriding real variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		DBMaxOpenConns:     EnvIntDefault("DB_MAX_OPEN_CONNS", 20),
		Port:               EnvDefault("PORT", "8080"),
		JWTSecret:          []byte(os.Getenv("AUTH_JWT_SECRET")),
		KafkaBrokers:       CSV(os.Getenv("KAFKA_BROKERS")),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:           ParseLevel(os.Getenv("LOG_LEVEL")),
		CORSAllowedOrigins: CSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		ServiceVersion:     EnvDefault("SERVICE_VERSION", "0.1.0"),
	}
}

var (
	ErrMissingPostgresURL = errors.New("POSTGRES_URL environment variable is required")
	ErrMissingJWTSecret   = errors.New("AUTH_JWT_SECRET environment variable is required")
	ErrMissingKafka       = errors.New("KAFKA_BROKERS environment variable is required")
)

func (c Config) RequireDatabase() error {
	if c.PostgresURL == "" {
		return ErrMissingPostgresURL
	}
	return nil
}

func (c Config) RequireAuth() error {
	if len(c.JWTSecret) == 0 {
		return ErrMissingJWTSecret
	}
	return nil
}

func (c Config) RequireKafka() error {
	if len(c.KafkaBrokers) == 0 {
		return ErrMissingKafka
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func ParseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
