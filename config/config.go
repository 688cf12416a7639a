package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreDriver string

	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string

	ListingURL    string
	ThreadURL     string
	UserAgent     string
	DetailFetcher string
	ChromeBin     string

	DelayMs          int
	RateLimitDelayMs int
	ErrorDelayMs     int
	HTTPTimeoutMs    int

	ExportPath string
	LogLevel   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "crawler"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "crawler"),
		PostgresDB:       getEnv("POSTGRES_DB", "f95zone_crawler"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", "./data/f95zone.db"),

		ListingURL:    getEnv("LISTING_URL", "https://f95zone.to/sam/latest_alpha/latest_data.php"),
		ThreadURL:     getEnv("THREAD_URL", "https://f95zone.to/threads/"),
		UserAgent:     getEnv("USER_AGENT", "f95-crawler/1.0 (+catalog ingestion bot)"),
		DetailFetcher: strings.ToLower(getEnv("DETAIL_FETCHER", FetcherHTTP)),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		DelayMs:          getEnvInt("DELAY_MS", 1000),
		RateLimitDelayMs: getEnvInt("RATE_LIMIT_DELAY_MS", 1800*1000),
		ErrorDelayMs:     getEnvInt("ERROR_DELAY_MS", 5000),
		HTTPTimeoutMs:    getEnvInt("HTTP_TIMEOUT_MS", 30000),

		ExportPath: getEnv("EXPORT_PATH", "./output/export.json"),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate reports configuration that cannot work. These are the only
// errors the crawler treats as fatal.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.DetailFetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return fmt.Errorf("config: unknown DETAIL_FETCHER %q", c.DetailFetcher)
	}
	if c.DelayMs < 0 || c.RateLimitDelayMs < 0 || c.ErrorDelayMs < 0 {
		return fmt.Errorf("config: delays must be non-negative")
	}
	if c.HTTPTimeoutMs <= 0 {
		return fmt.Errorf("config: HTTP_TIMEOUT_MS must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.dsnFor(c.PostgresDB)
}

// AdminDSN points at the server's maintenance database, used to create
// PostgresDB when it does not exist yet.
func (c *Config) AdminDSN() string {
	if c.DatabaseURL != "" {
		return strings.Replace(c.DatabaseURL, "/"+c.PostgresDB, "/postgres", 1)
	}
	return c.dsnFor("postgres")
}

func (c *Config) dsnFor(db string) string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + db +
		" sslmode=" + c.PostgresSSLMode
}

func (c *Config) Delay() time.Duration          { return ms(c.DelayMs) }
func (c *Config) RateLimitDelay() time.Duration { return ms(c.RateLimitDelayMs) }
func (c *Config) ErrorDelay() time.Duration     { return ms(c.ErrorDelayMs) }
func (c *Config) HTTPTimeout() time.Duration    { return ms(c.HTTPTimeoutMs) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
