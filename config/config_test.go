package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DELAY_MS", "")
	t.Setenv("RATE_LIMIT_DELAY_MS", "")
	t.Setenv("ERROR_DELAY_MS", "")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, time.Second, cfg.Delay())
	assert.Equal(t, 1800*time.Second, cfg.RateLimitDelay())
	assert.Equal(t, 5*time.Second, cfg.ErrorDelay())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DELAY_MS", "250")
	t.Setenv("RATE_LIMIT_DELAY_MS", "not-a-number")

	cfg := Load()

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay())
	assert.Equal(t, 1800*time.Second, cfg.RateLimitDelay(), "bad ints fall back to the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mysql" }, true},
		{"unknown fetcher", func(c *Config) { c.DetailFetcher = "curl" }, true},
		{"negative delay", func(c *Config) { c.DelayMs = -1 }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeoutMs = 0 }, true},
		{"browser fetcher", func(c *Config) { c.DetailFetcher = FetcherBrowser }, false},
		{"memory driver", func(c *Config) { c.StoreDriver = DriverMemory }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				StoreDriver:   DriverPostgres,
				DetailFetcher: FetcherHTTP,
				HTTPTimeoutMs: 1000,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "f95zone_crawler",
		PostgresSSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=f95zone_crawler sslmode=disable", cfg.DSN())
	assert.Contains(t, cfg.AdminDSN(), "dbname=postgres")

	cfg.DatabaseURL = "postgres://u:p@db:5433/f95zone_crawler?sslmode=disable"
	assert.Equal(t, cfg.DatabaseURL, cfg.DSN())
	assert.Equal(t, "postgres://u:p@db:5433/postgres?sslmode=disable", cfg.AdminDSN())
}
