package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	AdminAPIKey string

	KeyFetchTimeoutSeconds int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CacheTTLSeconds int

	CrawlConcurrency    int
	CrawlTimeoutSeconds int
	NotifyWebhookURL    string

	PolicyBundlePath string
	PolicyBundleID   string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:               envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		KeyFetchTimeoutSeconds: envIntDefault("KEY_FETCH_TIMEOUT_SECONDS", 10),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		CacheTTLSeconds:        envIntDefault("CACHE_TTL_SECONDS", 300),
		CrawlConcurrency:       envIntDefault("CRAWL_CONCURRENCY", 8),
		CrawlTimeoutSeconds:    envIntDefault("CRAWL_TIMEOUT_SECONDS", 15),
		NotifyWebhookURL:       os.Getenv("NOTIFY_WEBHOOK_URL"),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:         os.Getenv("POLICY_BUNDLE_ID"),
	}
}

func (c Config) KeyFetchTimeout() time.Duration {
	return time.Duration(c.KeyFetchTimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.CrawlTimeoutSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}
