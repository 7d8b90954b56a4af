package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// MailboxConfig holds the address lifecycle settings.
type MailboxConfig struct {
	// Domain is the service domain inbound recipients must match exactly.
	Domain string
	// DefaultTTL applies when an address-creation request carries no ttl.
	DefaultTTL time.Duration
}

// AuthConfig holds the optional shared-secret gate. An empty APIKey
// disables the gate entirely.
type AuthConfig struct {
	APIKey string
}

// SMTPConfig holds the inbound SMTP listener settings.
type SMTPConfig struct {
	Enabled  bool
	BindAddr string
	Domain   string // HELO/EHLO identity
}

// CORSConfig lists allowed origins; "*" allows all.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string
	Development bool
	LogFile     string
}

// StorageConfig selects the key-value store driver.
type StorageConfig struct {
	// Driver is "redis" or "memory". The memory driver is for development
	// only; records do not survive a restart.
	Driver string
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// Config is the process-wide configuration, fixed at startup and threaded
// explicitly through the router and services.
type Config struct {
	Server  ServerConfig
	Mailbox MailboxConfig
	Auth    AuthConfig
	SMTP    SMTPConfig
	CORS    CORSConfig
	Log     LogConfig
	Storage StorageConfig
	Redis   RedisConfig
}

// Load reads configuration from the environment (prefix DRIFTMAIL_) with an
// optional .env file underneath, then validates it. Environment variables
// override .env values, which override defaults.
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("driftmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mailbox.domain", "drift.mail")
	viper.SetDefault("mailbox.default_ttl", "1h")
	viper.SetDefault("auth.api_key", "")
	viper.SetDefault("smtp.enabled", true)
	viper.SetDefault("smtp.bind_addr", ":2525")
	viper.SetDefault("smtp.domain", "drift.mail")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.log_file", "")
	viper.SetDefault("storage.driver", "redis")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	defaultTTL, err := time.ParseDuration(viper.GetString("mailbox.default_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.default_ttl: %w", err)
	}
	if defaultTTL <= 0 {
		return nil, fmt.Errorf("mailbox.default_ttl must be positive")
	}

	mailDomain := strings.ToLower(strings.TrimSpace(viper.GetString("mailbox.domain")))
	if mailDomain == "" {
		return nil, fmt.Errorf("mailbox.domain must not be empty")
	}

	driver := viper.GetString("storage.driver")
	if driver != "redis" && driver != "memory" {
		return nil, fmt.Errorf("unknown storage.driver %q", driver)
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			Domain:     mailDomain,
			DefaultTTL: defaultTTL,
		},
		Auth: AuthConfig{
			APIKey: viper.GetString("auth.api_key"),
		},
		SMTP: SMTPConfig{
			Enabled:  viper.GetBool("smtp.enabled"),
			BindAddr: viper.GetString("smtp.bind_addr"),
			Domain:   viper.GetString("smtp.domain"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.log_file"),
		},
		Storage: StorageConfig{
			Driver: driver,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// parseList splits a comma-separated string into trimmed items.
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile loads an optional .env from the working directory or its
// parent. Existing environment variables always win.
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
