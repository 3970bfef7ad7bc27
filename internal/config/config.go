package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default values for optional settings.
const (
	defaultPort           = "8080"
	defaultBaseURL        = "http://localhost:8080"
	defaultGeoDBPath      = "GeoLite2-City.mmdb"
	defaultLookupTimeout  = 2 * time.Second
	defaultRecordTimeout  = 3 * time.Second
	defaultCacheTTL       = 10 * time.Minute
	defaultClickBuffer    = 1000
	defaultFlushThreshold = 100
	defaultFlushInterval  = 5 * time.Second
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port    string
	BaseURL string

	PostgresURL string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	ClickHouseAddr     string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseDB       string

	GeoDBPath string

	TelegramToken string

	LookupTimeout  time.Duration
	RecordTimeout  time.Duration
	ClickBuffer    int
	FlushThreshold int
	FlushInterval  time.Duration
}

// Load reads configuration from the environment. Required variables
// are validated; optional ones fall back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", defaultPort),
		BaseURL: getEnv("BASE_URL", defaultBaseURL),

		PostgresURL: os.Getenv("DB_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      getDuration("CACHE_TTL", defaultCacheTTL),

		ClickHouseAddr:     os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseUser:     os.Getenv("CLICKHOUSE_USER"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
		ClickHouseDB:       os.Getenv("CLICKHOUSE_DB"),

		GeoDBPath: getEnv("GEOIP_DB_PATH", defaultGeoDBPath),

		TelegramToken: os.Getenv("TELEGRAM_API_TOKEN"),

		LookupTimeout:  getDuration("LOOKUP_TIMEOUT", defaultLookupTimeout),
		RecordTimeout:  getDuration("RECORD_TIMEOUT", defaultRecordTimeout),
		ClickBuffer:    getInt("CLICK_BUFFER_SIZE", defaultClickBuffer),
		FlushThreshold: getInt("CLICK_FLUSH_THRESHOLD", defaultFlushThreshold),
		FlushInterval:  getDuration("CLICK_FLUSH_INTERVAL", defaultFlushInterval),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required variable is present.
func (c *Config) Validate() error {
	required := map[string]string{
		"DB_URL":              c.PostgresURL,
		"REDIS_ADDR":          c.RedisAddr,
		"CLICKHOUSE_ADDR":     c.ClickHouseAddr,
		"CLICKHOUSE_USER":     c.ClickHouseUser,
		"CLICKHOUSE_PASSWORD": c.ClickHousePassword,
		"CLICKHOUSE_DB":       c.ClickHouseDB,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing required environment variable %s", name)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
