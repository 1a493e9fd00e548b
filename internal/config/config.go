package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Session SessionConfig
	Notify  NotifyConfig
	Admin   AdminConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Env             string // "development" or "production"
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// WSReadTimeout closes a socket that sends nothing for this long.
	WSReadTimeout time.Duration
}

// StoreConfig selects the persistence backend: "memory", "sqlite" or "postgres".
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// SessionConfig tunes the per-draft actors.
type SessionConfig struct {
	InboxSize        int
	OutboxSize       int
	PersistTimeout   time.Duration
	PersistRetries   int
	PersistBaseDelay time.Duration
	NotifyTimeout    time.Duration
}

type NotifyConfig struct {
	WebhookURL string
	// Postgres enables pg_notify on Channel using Store.DatabaseURL.
	Postgres bool
	Channel  string
}

type AdminConfig struct {
	Secret string
}

type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Env:             getEnv("ENV", "development"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvList("ALLOWED_ORIGINS"),
			WSReadTimeout:   getEnvDuration("WS_READ_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Driver:      getEnv("STORE_DRIVER", "memory"),
			SQLitePath:  getEnv("SQLITE_PATH", "drafts.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Session: SessionConfig{
			InboxSize:        getEnvInt("SESSION_INBOX_SIZE", 64),
			OutboxSize:       getEnvInt("SESSION_OUTBOX_SIZE", 8),
			PersistTimeout:   getEnvDuration("PERSIST_TIMEOUT", 5*time.Second),
			PersistRetries:   getEnvInt("PERSIST_RETRIES", 3),
			PersistBaseDelay: getEnvDuration("PERSIST_BASE_DELAY", 100*time.Millisecond),
			NotifyTimeout:    getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Postgres:   getEnvBool("NOTIFY_PG", false),
			Channel:    getEnv("NOTIFY_PG_CHANNEL", "draft_updates"),
		},
		Admin: AdminConfig{
			Secret: getEnv("ADMIN_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "250ms" or "5s".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
