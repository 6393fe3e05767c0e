package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DBPath   string // path to the sqlite database file
	SeedFile string // path to the wikis.yaml seed file (optional, empty = no seeding from file)

	CacheTTL    time.Duration // max age of a revision check before a fresh probe (default: 5m)
	ThumbSize   int           // requested thumbnail width in pixels (default: 500)
	HTTPTimeout time.Duration // timeout for remote MediaWiki requests (default: 15s)
	UserAgent   string        // User-Agent sent to remote wikis (MediaWiki etiquette)

	ConnectivityURL     string        // endpoint probed to decide online/offline
	ConnectivityTimeout time.Duration // timeout for a single connectivity probe
	ConnectivityTTL     time.Duration // how long a connectivity verdict is reused

	StarredRefreshInterval time.Duration // interval for background refresh of starred articles (0 = disabled)
	SearchCacheTTL         time.Duration // TTL for cached remote search results in Redis

	// Redis (optional; empty RedisAddr disables the remote-search result cache)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IPs (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("WIKICACHE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("WIKICACHE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("WIKICACHE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("WIKICACHE_PRETTY_LOG", true),

		// Storage
		DBPath:   getenv("WIKICACHE_DB_PATH", "wikicache.db"),
		SeedFile: getenv("WIKICACHE_SEED_FILE", ""),

		// Freshness / fetching
		CacheTTL:    mustDuration("WIKICACHE_CACHE_TTL", 5*time.Minute),
		ThumbSize:   getenvInt("WIKICACHE_THUMB_SIZE", 500),
		HTTPTimeout: mustDuration("WIKICACHE_HTTP_TIMEOUT", 15*time.Second),
		UserAgent:   getenv("WIKICACHE_USER_AGENT", "wikicache/1.0"),

		// Connectivity oracle
		ConnectivityURL:     getenv("WIKICACHE_CONNECTIVITY_URL", "https://en.wikipedia.org/w/api.php"),
		ConnectivityTimeout: mustDuration("WIKICACHE_CONNECTIVITY_TIMEOUT", 2*time.Second),
		ConnectivityTTL:     mustDuration("WIKICACHE_CONNECTIVITY_TTL", 30*time.Second),

		// Background refresh / search cache
		StarredRefreshInterval: mustDuration("WIKICACHE_STARRED_REFRESH_INTERVAL", time.Hour),
		SearchCacheTTL:         mustDuration("WIKICACHE_SEARCH_CACHE_TTL", 10*time.Minute),

		// Redis settings (only used when WIKICACHE_REDIS_ADDR is set)
		RedisAddr:           getenv("WIKICACHE_REDIS_ADDR", ""),
		RedisUser:           getenv("WIKICACHE_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("WIKICACHE_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("WIKICACHE_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("WIKICACHE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("WIKICACHE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("WIKICACHE_TRUST_PROXY", false),
	}

	if cfg.CacheTTL <= 0 {
		panic(fmt.Sprintf("❌ FATAL: WIKICACHE_CACHE_TTL must be > 0, got %v", cfg.CacheTTL))
	}
	if cfg.DBPath == "" {
		panic("❌ FATAL: WIKICACHE_DB_PATH must not be empty")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
