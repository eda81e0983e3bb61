package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service and the CLI
type Config struct {
	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Backend API
	UpstreamBaseURL      string
	UpstreamAPIKey       string
	UpstreamTimeout      time.Duration
	UpstreamPageSize     int
	UpstreamMaxPages     int
	UpstreamFetchWorkers int

	// Caching
	CacheTTL  time.Duration
	RedisAddr string

	// Storefront
	PageSize      int
	RegionMapping map[string][]string

	// Logging
	LogLevel  string
	LogFormat string
}

// DefaultRegionMapping expands storefront region labels to the region
// literals the backend uses.
func DefaultRegionMapping() map[string][]string {
	return map[string][]string{
		"Americas":    {"North America", "South America", "Central America", "Caribbean"},
		"Europe":      {"Europe"},
		"Asia":        {"Asia", "Asia Pacific"},
		"Middle East": {"Middle East"},
		"Africa":      {"Africa"},
		"Oceania":     {"Oceania"},
	}
}

// Load reads an optional env file, then the process environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	mapping := DefaultRegionMapping()
	if raw := getEnv("REGION_MAPPING", ""); raw != "" {
		mapping = ParseRegionMapping(raw)
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 10)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		UpstreamBaseURL:      strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:3000/api"), "/"),
		UpstreamAPIKey:       getEnv("UPSTREAM_API_KEY", ""),
		UpstreamTimeout:      time.Duration(getEnvAsInt("UPSTREAM_TIMEOUT", 15)) * time.Second,
		UpstreamPageSize:     getEnvAsInt("UPSTREAM_PAGE_SIZE", 100),
		UpstreamMaxPages:     getEnvAsInt("UPSTREAM_MAX_PAGES", 50),
		UpstreamFetchWorkers: getEnvAsInt("UPSTREAM_FETCH_WORKERS", 4),

		CacheTTL:  time.Duration(getEnvAsInt("CACHE_TTL", 300)) * time.Second,
		RedisAddr: getEnv("REDIS_ADDR", ""),

		PageSize:      getEnvAsInt("PAGE_SIZE", 20),
		RegionMapping: mapping,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}, nil
}

// ParseRegionMapping parses "Americas=North America|South America;Europe=Europe".
// Malformed entries are ignored.
func ParseRegionMapping(raw string) map[string][]string {
	out := make(map[string][]string)
	for _, entry := range strings.Split(raw, ";") {
		label, values, ok := strings.Cut(entry, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			continue
		}
		for _, v := range strings.Split(values, "|") {
			if v = strings.TrimSpace(v); v != "" {
				out[label] = append(out[label], v)
			}
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
