package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Host              string `toml:"host"`                        // EMIT_HUB_HOST (default "127.0.0.1")
	Port              int    `toml:"port"`                        // EMIT_HUB_PORT (default 8080)
	Store             string `toml:"store"`                       // EMIT_HUB_STORE (sqlite, postgres, memory)
	DBPath            string `toml:"db_path"`                     // EMIT_HUB_DB_PATH (default "emit_hub.db")
	DatabaseURL       string `toml:"database_url"`                // EMIT_HUB_DATABASE_URL (required for postgres)
	NATSURL           string `toml:"nats_url"`                    // EMIT_HUB_NATS_URL (optional, empty = no events)
	MaxConnections    int    `toml:"max_connections_per_channel"` // EMIT_HUB_MAX_CONNECTIONS
	MessageSizeLimit  int    `toml:"message_size_limit"`          // EMIT_HUB_MESSAGE_SIZE_LIMIT (bytes)
	LogLevel          string `toml:"log_level"`                   // EMIT_HUB_LOG_LEVEL (debug, info, warn, error)
	LogFormat         string `toml:"log_format"`                  // EMIT_HUB_LOG_FORMAT (text, json)
	StrictTransitions bool   `toml:"strict_transitions"`          // EMIT_HUB_STRICT_TRANSITIONS

	CORS        CORSConfig        `toml:"cors"`
	WebSocket   WebSocketConfig   `toml:"websocket"`
	Persistence PersistenceConfig `toml:"persistence"`
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"` // EMIT_HUB_CORS_ORIGINS (comma list, "*" = all)
	AllowedMethods []string `toml:"allowed_methods"`
	AllowedHeaders []string `toml:"allowed_headers"`
	MaxAge         int      `toml:"max_age"` // seconds
}

type WebSocketConfig struct {
	ConnectionTimeout time.Duration `toml:"connection_timeout"` // EMIT_HUB_WS_TIMEOUT (handshake)
	PingInterval      time.Duration `toml:"ping_interval"`      // EMIT_HUB_WS_PING_INTERVAL (0 = disabled)
	PongTimeout       time.Duration `toml:"pong_timeout"`       // EMIT_HUB_WS_PONG_TIMEOUT
	WriteTimeout      time.Duration `toml:"write_timeout"`      // EMIT_HUB_WS_WRITE_TIMEOUT
}

type PersistenceConfig struct {
	PersistMessagesDefault bool          `toml:"persist_messages_default"` // EMIT_HUB_PERSIST_MESSAGES
	MaxMessagesPerChannel  int           `toml:"max_messages_per_channel"` // EMIT_HUB_MAX_MESSAGES_PER_CHANNEL (advisory)
	MessageRetentionDays   int           `toml:"message_retention_days"`   // EMIT_HUB_MESSAGE_RETENTION_DAYS (advisory)
	AutoBackup             bool          `toml:"auto_backup"`              // EMIT_HUB_AUTO_BACKUP
	BackupInterval         time.Duration `toml:"backup_interval"`          // EMIT_HUB_BACKUP_INTERVAL (default 24h)
	BackupDir              string        `toml:"backup_dir"`               // EMIT_HUB_BACKUP_DIR (file destination)
	S3Bucket               string        `toml:"s3_bucket"`                // EMIT_HUB_BACKUP_S3_BUCKET (enables S3 when set)
	S3Key                  string        `toml:"s3_key"`                   // EMIT_HUB_BACKUP_S3_KEY
	S3Region               string        `toml:"s3_region"`                // EMIT_HUB_BACKUP_S3_REGION
	S3Endpoint             string        `toml:"s3_endpoint"`              // EMIT_HUB_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             8080,
		Store:            StoreSQLite,
		DBPath:           "emit_hub.db",
		MaxConnections:   1000,
		MessageSizeLimit: 1 << 20,
		LogLevel:         "info",
		LogFormat:        "text",
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:8080",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:8080",
			},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With"},
			MaxAge:         3600,
		},
		WebSocket: WebSocketConfig{
			ConnectionTimeout: 30 * time.Second,
			PingInterval:      30 * time.Second,
			PongTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		Persistence: PersistenceConfig{
			MaxMessagesPerChannel: 10000,
			MessageRetentionDays:  30,
			BackupInterval:        24 * time.Hour,
			S3Key:                 "emithub/backup.jsonl",
			S3Region:              "us-east-1",
		},
	}
}

// Load builds the configuration from the defaults, the TOML file named by
// EMIT_HUB_CONFIG (if any) and the environment, in that order, then
// validates it.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv("EMIT_HUB_CONFIG"); path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile overlays the TOML file at path on c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Host = envOrDefault("EMIT_HUB_HOST", c.Host)
	c.Store = strings.ToLower(envOrDefault("EMIT_HUB_STORE", c.Store))
	c.DBPath = envOrDefault("EMIT_HUB_DB_PATH", c.DBPath)
	c.DatabaseURL = envOrDefault("EMIT_HUB_DATABASE_URL", c.DatabaseURL)
	c.NATSURL = envOrDefault("EMIT_HUB_NATS_URL", c.NATSURL)
	c.LogLevel = strings.ToLower(envOrDefault("EMIT_HUB_LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(envOrDefault("EMIT_HUB_LOG_FORMAT", c.LogFormat))
	if v := os.Getenv("EMIT_HUB_CORS_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}

	p := &c.Persistence
	p.BackupDir = envOrDefault("EMIT_HUB_BACKUP_DIR", p.BackupDir)
	p.S3Bucket = envOrDefault("EMIT_HUB_BACKUP_S3_BUCKET", p.S3Bucket)
	p.S3Key = envOrDefault("EMIT_HUB_BACKUP_S3_KEY", p.S3Key)
	p.S3Region = envOrDefault("EMIT_HUB_BACKUP_S3_REGION", p.S3Region)
	p.S3Endpoint = envOrDefault("EMIT_HUB_BACKUP_S3_ENDPOINT", p.S3Endpoint)

	ws := &c.WebSocket
	return errors.Join(
		envInt("EMIT_HUB_PORT", &c.Port),
		envInt("EMIT_HUB_MAX_CONNECTIONS", &c.MaxConnections),
		envInt("EMIT_HUB_MESSAGE_SIZE_LIMIT", &c.MessageSizeLimit),
		envBool("EMIT_HUB_STRICT_TRANSITIONS", &c.StrictTransitions),
		envDuration("EMIT_HUB_WS_TIMEOUT", &ws.ConnectionTimeout),
		envDuration("EMIT_HUB_WS_PING_INTERVAL", &ws.PingInterval),
		envDuration("EMIT_HUB_WS_PONG_TIMEOUT", &ws.PongTimeout),
		envDuration("EMIT_HUB_WS_WRITE_TIMEOUT", &ws.WriteTimeout),
		envBool("EMIT_HUB_PERSIST_MESSAGES", &p.PersistMessagesDefault),
		envInt("EMIT_HUB_MAX_MESSAGES_PER_CHANNEL", &p.MaxMessagesPerChannel),
		envInt("EMIT_HUB_MESSAGE_RETENTION_DAYS", &p.MessageRetentionDays),
		envBool("EMIT_HUB_AUTO_BACKUP", &p.AutoBackup),
		envDuration("EMIT_HUB_BACKUP_INTERVAL", &p.BackupInterval),
	)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Port >= 1 && c.Port <= 65535, "port must be between 1 and 65535, got %d", c.Port)
	check(c.MaxConnections > 0, "max connections must be positive, got %d", c.MaxConnections)
	check(c.MessageSizeLimit > 0, "message size limit must be positive, got %d", c.MessageSizeLimit)
	check(c.WebSocket.ConnectionTimeout > 0, "websocket connection timeout must be positive")
	check(c.WebSocket.WriteTimeout > 0, "websocket write timeout must be positive")
	check(c.WebSocket.PingInterval >= 0, "websocket ping interval must not be negative")
	check(c.WebSocket.PingInterval == 0 || c.WebSocket.PongTimeout > 0, "websocket pong timeout must be positive when pings are enabled")

	switch c.Store {
	case StoreSQLite:
		check(c.DBPath != "", "sqlite store needs EMIT_HUB_DB_PATH")
	case StorePostgres:
		check(c.DatabaseURL != "", "EMIT_HUB_DATABASE_URL is required for the postgres store")
	case StoreMemory:
	default:
		check(false, "unknown store %q (want sqlite, postgres or memory)", c.Store)
	}

	_, levelErr := parseLevel(c.LogLevel)
	check(levelErr == nil, "unknown log level %q", c.LogLevel)
	check(c.LogFormat == "text" || c.LogFormat == "json", "unknown log format %q (want text or json)", c.LogFormat)

	check(c.Persistence.MaxMessagesPerChannel >= 0, "max messages per channel must not be negative, got %d", c.Persistence.MaxMessagesPerChannel)
	check(c.Persistence.MessageRetentionDays > 0, "message retention days must be positive, got %d", c.Persistence.MessageRetentionDays)

	if c.Persistence.AutoBackup {
		check(c.Persistence.BackupInterval > 0, "backup interval must be positive when auto backup is enabled")
		check(c.Persistence.BackupDir != "" || c.Persistence.S3Bucket != "",
			"auto backup needs EMIT_HUB_BACKUP_DIR or EMIT_HUB_BACKUP_S3_BUCKET")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SlogLevel returns the configured log level. Unknown levels map to info.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
