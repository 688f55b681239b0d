// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server        Server
	Xero          Xero
	Database      Database
	Redis         Redis
	Auth          Auth
	Resilience    Resilience
	Analytics     Analytics
	Observability Observability
}

type Server struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Xero struct {
	BaseURL     string
	AccessToken string
	HTTPTimeout time.Duration
	PageSize    int
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis is optional; with an empty URL reports are cached in process.
type Redis struct {
	URL       string
	KeyPrefix string
	CacheTTL  time.Duration
}

type Auth struct {
	JWTSecret string
	// APIKeyHashes maps a user id to the bcrypt hash of its API key.
	APIKeyHashes map[string]string
}

type Resilience struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxConcurrency int
}

// Analytics holds the tunable defaults of the engines.
type Analytics struct {
	ForecastDays                int
	LowBalanceThreshold         float64
	SignificantOutflowThreshold float64
	AnomalyMonths               int
	KPIMonths                   int
	RuleBatchSize               int
	MatchPageSize               int
	SyncDays                    int
}

type Observability struct {
	OTLPEndpoint string
	ServiceName  string
}

// LoadDotEnv reads .env files for local development. Variables already set
// in the environment win; missing files are ignored.
func LoadDotEnv(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Server: Server{
			Port:            getEnvInt("PORT", 8080),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Xero: Xero{
			BaseURL:     strings.TrimRight(getEnv("XERO_API_URL", "https://api.xero.com/api.xro/2.0"), "/"),
			AccessToken: getEnv("XERO_ACCESS_TOKEN", ""),
			HTTPTimeout: getEnvDuration("XERO_HTTP_TIMEOUT", 20*time.Second),
			PageSize:    getEnvInt("XERO_PAGE_SIZE", 100),
		},
		Database: Database{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "cfo:"),
			CacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 15*time.Minute),
		},
		Auth: Auth{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			APIKeyHashes: parseKeyHashes(getEnv("API_KEY_HASHES", "")),
		},
		Resilience: Resilience{
			MaxRetries:     getEnvInt("MAX_RETRIES", 3),
			InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
			MaxBackoff:     getEnvDuration("MAX_BACKOFF", 5*time.Second),
			MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),
		},
		Analytics: Analytics{
			ForecastDays:                getEnvInt("FORECAST_DAYS", 90),
			LowBalanceThreshold:         getEnvFloat("LOW_BALANCE_THRESHOLD", 5000),
			SignificantOutflowThreshold: getEnvFloat("SIGNIFICANT_OUTFLOW_THRESHOLD", 10000),
			AnomalyMonths:               getEnvInt("ANOMALY_MONTHS", 3),
			KPIMonths:                   getEnvInt("KPI_MONTHS", 3),
			RuleBatchSize:               getEnvInt("RULE_BATCH_SIZE", 100),
			MatchPageSize:               getEnvInt("MATCH_PAGE_SIZE", 20),
			SyncDays:                    getEnvInt("SYNC_DAYS", 30),
		},
		Observability: Observability{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "cfo-assistant"),
		},
	}
}

// Validate reports settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Auth.JWTSecret == "" && len(c.Auth.APIKeyHashes) == 0 {
		errs = append(errs, errors.New("JWT_SECRET or API_KEY_HASHES is required"))
	}
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// parseKeyHashes reads "user1=$2a$...,user2=$2a$...".
func parseKeyHashes(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		user, hash, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || user == "" || hash == "" {
			continue
		}
		out[user] = hash
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
