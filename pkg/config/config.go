// Package config loads proxy configuration from the environment and an
// optional .env file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
//
// Environment variables:
//
//	LISTEN_ADDR         — API server address (default: :8080)
//	METRICS_ADDR        — Prometheus metrics address (default: :9090)
//	CATALOG_BASE_URL    — game catalog API base URL
//	VIDEO_BASE_URL      — video-platform API base URL
//	CATALOG_API_KEYS    — comma-separated catalog API keys
//	VIDEO_API_KEYS      — comma-separated video-platform API keys
//	REDIS_ADDR          — Redis address (default: localhost:6379)
//	REDIS_PASSWORD      — Redis password (default: "")
//	REDIS_DB            — Redis database (default: 0)
//	CACHE_TTL           — list/search cache TTL (default: 1h)
//	DETAIL_CACHE_TTL    — detail cache TTL (default: 1h)
//	LIST_TIMEOUT        — per-attempt timeout for list queries (default: 10s)
//	DETAIL_TIMEOUT      — per-attempt timeout for detail lookups (default: 4s)
//	LOG_LEVEL           — logrus level (default: info)
type Config struct {
	ListenAddr  string
	MetricsAddr string

	CatalogBaseURL string
	VideoBaseURL   string
	CatalogKeys    []string
	VideoKeys      []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CacheTTL       time.Duration
	DetailCacheTTL time.Duration
	ListTimeout    time.Duration
	DetailTimeout  time.Duration

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("CATALOG_BASE_URL", "https://api.rawg.io/api")
	v.SetDefault("VIDEO_BASE_URL", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", time.Hour)
	v.SetDefault("DETAIL_CACHE_TTL", time.Hour)
	v.SetDefault("LIST_TIMEOUT", 10*time.Second)
	v.SetDefault("DETAIL_TIMEOUT", 4*time.Second)
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		ListenAddr:     v.GetString("LISTEN_ADDR"),
		MetricsAddr:    v.GetString("METRICS_ADDR"),
		CatalogBaseURL: v.GetString("CATALOG_BASE_URL"),
		VideoBaseURL:   v.GetString("VIDEO_BASE_URL"),
		CatalogKeys:    SplitKeys(v.GetString("CATALOG_API_KEYS")),
		VideoKeys:      SplitKeys(v.GetString("VIDEO_API_KEYS")),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		CacheTTL:       v.GetDuration("CACHE_TTL"),
		DetailCacheTTL: v.GetDuration("DETAIL_CACHE_TTL"),
		ListTimeout:    v.GetDuration("LIST_TIMEOUT"),
		DetailTimeout:  v.GetDuration("DETAIL_TIMEOUT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}
}

// SplitKeys splits a comma-separated credential list, dropping blank
// entries.
func SplitKeys(s string) []string {
	if s == "" {
		return nil
	}
	var keys []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
