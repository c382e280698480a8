package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; the service boots with nothing set,
// although remote calls fail until LINKSPOOL_TOKEN is configured.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabasePath string

	// Remote bookmarking service
	RemoteBaseURL      string
	RemoteToken        string
	RemoteTimeout      time.Duration
	RemoteCallInterval time.Duration // min spacing between API calls

	// Title fetching
	TitleFetchTimeout time.Duration
	TitleMaxBytes     int64

	// Retry backoff durations: index 0 = delay after the first failed
	// attempt, clamped at the last entry for later attempts.
	RetryBackoff  []time.Duration
	MinRetryDelay time.Duration

	// Background retry worker
	RetryInterval time.Duration
	RetryBatch    int
	RetryNowBatch int

	// API surface
	QueueListLimit int
	EventBuffer    int
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8610"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 0), // 0: the SSE stream must be able to write indefinitely
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabasePath: getEnv("DATABASE_PATH", defaultDatabasePath()),

		RemoteBaseURL:      getEnv("LINKSPOOL_REMOTE_URL", "https://api.pinboard.in/v1"),
		RemoteToken:        getEnv("LINKSPOOL_TOKEN", ""),
		RemoteTimeout:      getDuration("REMOTE_TIMEOUT", 15*time.Second),
		RemoteCallInterval: getDuration("REMOTE_CALL_INTERVAL", 3*time.Second),

		TitleFetchTimeout: getDuration("TITLE_FETCH_TIMEOUT", 10*time.Second),
		TitleMaxBytes:     int64(getInt("TITLE_MAX_BYTES", 1<<20)),

		RetryBackoff: []time.Duration{
			getDuration("RETRY_BACKOFF_1", 10*time.Second),
			getDuration("RETRY_BACKOFF_2", 30*time.Second),
			getDuration("RETRY_BACKOFF_3", 2*time.Minute),
			getDuration("RETRY_BACKOFF_4", 10*time.Minute),
			getDuration("RETRY_BACKOFF_5", time.Hour),
		},
		MinRetryDelay: getDuration("MIN_RETRY_DELAY", 3*time.Second),

		RetryInterval: getDuration("RETRY_INTERVAL", 20*time.Second),
		RetryBatch:    getInt("RETRY_BATCH", 5),
		RetryNowBatch: getInt("RETRY_NOW_BATCH", 25),

		QueueListLimit: getInt("QUEUE_LIST_LIMIT", 50),
		EventBuffer:    getInt("EVENT_BUFFER", 8),
	}
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "linkspool", "linkspool.db")
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
