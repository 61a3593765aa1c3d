// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBase    = "https://www.udio.com/api"
	DefaultSearchPath = "/songs/search"
	DefaultPageSize   = 30
	DefaultMaxRetries = 3
)

var (
	ErrInvalidCORSMode = errors.New("cors mode must be one of direct, proxy, auto")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrInvalidRetries  = errors.New("max retries must not be negative")
)

type Config struct {
	APIBase    string
	SearchPath string
	APIToken   string

	PageSize       int
	MaxRetries     int
	CORSMode       string
	Placeholders   bool
	ProxyCooldown  time.Duration
	RequestTimeout time.Duration
	UseRelay       bool
	SelfRelayURL   string

	DBPath       string
	SocketPath   string
	ListenAddr   string
	DownloadDir  string
	LoopInterval time.Duration
}

// SearchEndpoint is the full URL of the search call.
func (c *Config) SearchEndpoint() string {
	return strings.TrimRight(c.APIBase, "/") + "/" + strings.TrimLeft(c.SearchPath, "/")
}

func (c *Config) Validate() error {
	switch c.CORSMode {
	case "direct", "proxy", "auto":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCORSMode, c.CORSMode)
	}
	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	return nil
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] could not read .env: %v", err)
	}

	cfg := &Config{
		APIBase:        getEnv("UDIO_API_BASE", DefaultAPIBase),
		SearchPath:     getEnv("UDIO_SEARCH_PATH", DefaultSearchPath),
		APIToken:       getEnv("UDIO_API_TOKEN", ""),
		PageSize:       getEnvInt("RIZUMU_PAGE_SIZE", DefaultPageSize),
		MaxRetries:     getEnvInt("RIZUMU_MAX_RETRIES", DefaultMaxRetries),
		CORSMode:       strings.ToLower(getEnv("RIZUMU_CORS_MODE", "auto")),
		Placeholders:   getEnvBool("RIZUMU_PLACEHOLDERS", false),
		ProxyCooldown:  getEnvDuration("RIZUMU_PROXY_COOLDOWN", 30*time.Minute),
		RequestTimeout: getEnvDuration("RIZUMU_REQUEST_TIMEOUT", 15*time.Second),
		UseRelay:       getEnvBool("RIZUMU_RELAY", false),
		SelfRelayURL:   getEnv("RIZUMU_SELF_RELAY", ""),
		DBPath:         getEnv("RIZUMU_DB", "rizumu.db"),
		SocketPath:     getEnv("RIZUMU_SOCKET", "/tmp/rizumu.sock"),
		ListenAddr:     getEnv("RIZUMU_ADDR", ":8080"),
		DownloadDir:    getEnv("RIZUMU_SONGS_DIR", "./songs"),
		LoopInterval:   getEnvDuration("RIZUMU_LOOP_INTERVAL", 50*time.Millisecond),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[config] WARN: %s=%q is not an integer, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[config] WARN: %s=%q is not a boolean, using %v", key, value, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[config] WARN: %s=%q is not a duration, using %s", key, value, fallback)
		return fallback
	}
	return d
}
