package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	UserAgent      string

	DatabaseDriver string
	PostgresDSN    string
	SQLitePath     string

	RedisURL      string
	CacheDisabled bool

	SearchTTL  time.Duration
	SuggestTTL time.Duration
	HomeTTL    time.Duration
	ExploreTTL time.Duration
	FiltersTTL time.Duration

	SuggestThreshold int
	SuggestLimit     int

	DramaboxEndpoint  string
	ReelshortEndpoint string
	ShortmaxEndpoint  string
	FlickreelEndpoint string
	FlickreelAPIKey   string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:      getEnv("PROVIDER_USER_AGENT", "drama-catalog/1.0"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		PostgresDSN:    getEnv("POSTGRES_DSN", "host=localhost user=catalog password=catalog dbname=catalog port=5432 sslmode=disable"),
		SQLitePath:     getEnv("SQLITE_PATH", "catalog.db"),

		RedisURL:      getEnv("REDIS_URL", ""),
		CacheDisabled: getEnvBool("CACHE_DISABLED", false),

		SearchTTL:  time.Duration(getEnvInt("CACHE_SEARCH_TTL_SECONDS", 120)) * time.Second,
		SuggestTTL: time.Duration(getEnvInt("CACHE_SUGGEST_TTL_SECONDS", 30)) * time.Second,
		HomeTTL:    time.Duration(getEnvInt("CACHE_HOME_TTL_SECONDS", 30)) * time.Second,
		ExploreTTL: time.Duration(getEnvInt("CACHE_EXPLORE_TTL_SECONDS", 120)) * time.Second,
		FiltersTTL: time.Duration(getEnvInt("CACHE_FILTERS_TTL_SECONDS", 600)) * time.Second,

		SuggestThreshold: getEnvInt("SUGGEST_LOCAL_THRESHOLD", 5),
		SuggestLimit:     getEnvInt("SUGGEST_LIMIT", 10),

		DramaboxEndpoint:  getEnv("PROVIDER_DRAMABOX_ENDPOINT", ""),
		ReelshortEndpoint: getEnv("PROVIDER_REELSHORT_ENDPOINT", ""),
		ShortmaxEndpoint:  getEnv("PROVIDER_SHORTMAX_ENDPOINT", ""),
		FlickreelEndpoint: getEnv("PROVIDER_FLICKREEL_ENDPOINT", ""),
		FlickreelAPIKey:   strings.TrimSpace(os.Getenv("PROVIDER_FLICKREEL_API_KEY")),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
