package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 10s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	CallbackURL    string // externally reachable base URL, ex: https://push.domain.ext
	WebhookPath    string // delivery mount point, generated per process if unset
	Secret         string // HMAC signing secret, generated per process if unset
	NgrokAuthtoken string // dev mode: open an ngrok tunnel instead of CallbackURL

	HubURL           string        // WebSub hub endpoint
	LeaseSeconds     int           // requested lease, 0 = hub default
	RenewalInterval  time.Duration // how often expiring leases are scanned
	RenewalLookahead time.Duration // renew leases expiring within this window

	ChannelsFile string // optional YAML watchlist subscribed at startup

	// History backend: "memory" | "file" | "redis"
	HistoryBackend  string
	HistoryCapacity int           // memory backend: max remembered IDs
	HistoryDir      string        // file backend: marker directory
	HistoryTTL      time.Duration // redis backend: per-ID expiry, 0 = keep forever

	// Redis (history backend "redis" only)
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisConnectTimeout time.Duration
	RedisRetryInterval  time.Duration
	RedisMaxWait        time.Duration
	RedisPingTimeout    time.Duration
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("YTPUSH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("YTPUSH_SHUTDOWN_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("YTPUSH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("YTPUSH_PRETTY_LOG", false),

		// Webhook exposure
		CallbackURL:    getenv("YTPUSH_CALLBACK_URL", ""),
		WebhookPath:    getenv("YTPUSH_WEBHOOK_PATH", "/webhook/"+uuid.NewString()),
		Secret:         getenv("YTPUSH_SECRET", randomSecret()),
		NgrokAuthtoken: getenv("YTPUSH_NGROK_AUTHTOKEN", ""),

		// Hub settings
		HubURL:           getenv("YTPUSH_HUB_URL", ""),
		LeaseSeconds:     getenvInt("YTPUSH_LEASE_SECONDS", 0),
		RenewalInterval:  mustDuration("YTPUSH_RENEWAL_INTERVAL", time.Hour),
		RenewalLookahead: mustDuration("YTPUSH_RENEWAL_LOOKAHEAD", 12*time.Hour),

		ChannelsFile: getenv("YTPUSH_CHANNELS_FILE", ""),

		// History settings
		HistoryBackend:  getenv("YTPUSH_HISTORY_BACKEND", "memory"),
		HistoryCapacity: getenvInt("YTPUSH_HISTORY_CAPACITY", 5000),
		HistoryDir:      getenv("YTPUSH_HISTORY_DIR", "/var/lib/ytpush/history"),
		HistoryTTL:      mustDuration("YTPUSH_HISTORY_TTL", 0),

		// Redis settings
		RedisAddr:           getenv("YTPUSH_REDIS_ADDR", ""),
		RedisPassword:       getenv("YTPUSH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("YTPUSH_REDIS_DB", 0),
		RedisConnectTimeout: mustDuration("YTPUSH_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("YTPUSH_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("YTPUSH_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("YTPUSH_REDIS_PING_TIMEOUT", 2*time.Second),
	}

	if cfg.CallbackURL == "" && cfg.NgrokAuthtoken == "" {
		panic("❌ FATAL: YTPUSH_CALLBACK_URL is required unless YTPUSH_NGROK_AUTHTOKEN is set")
	}

	switch cfg.HistoryBackend {
	case "memory", "file":
	case "redis":
		if cfg.RedisAddr == "" {
			panic("❌ FATAL: YTPUSH_REDIS_ADDR is required when YTPUSH_HISTORY_BACKEND=redis")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown YTPUSH_HISTORY_BACKEND %q (want memory, file or redis)", cfg.HistoryBackend))
	}

	return cfg
}

// randomSecret generates a per-process signing secret for setups that never
// configured one. Fine as long as the process outlives its subscriptions.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("❌ FATAL: Failed to generate webhook secret: %v", err))
	}
	return hex.EncodeToString(buf)
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
