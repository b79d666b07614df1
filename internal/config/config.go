package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-3-flash-preview"
)

type Config struct {
	OpenRouter OpenRouterConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	Web        WebConfig
	Prices     PricesConfig
}

// OpenRouterConfig describes the chat-completions endpoint used for both
// describing and matching.
type OpenRouterConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	DescribeTimeout time.Duration // video-bearing requests
	MatchTimeout    time.Duration // text-only requests
	Referer         string        // sent as HTTP-Referer for OpenRouter rankings
	Title           string        // sent as X-Title
}

type StorageConfig struct {
	MediaDir  string // root of served media, avatars live in MediaDir/avatars
	CachePath string // derived name -> description JSON file
}

// AvatarsDir returns the directory holding reference videos.
func (c *StorageConfig) AvatarsDir() string {
	return filepath.Join(c.MediaDir, "avatars")
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	PublicURL      string // absolute base for avatar links, derived from the request when empty
	AllowedOrigins string // comma-separated CORS origins, "*" for any
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads a duration like "300s" or a plain number of seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		OpenRouter: OpenRouterConfig{
			APIKey:          os.Getenv("OPENROUTER_API_KEY"),
			BaseURL:         strings.TrimRight(envString("OPENROUTER_BASE_URL", DefaultBaseURL), "/"),
			Model:           envString("OPENROUTER_MODEL", DefaultModel),
			DescribeTimeout: envDuration("OPENROUTER_DESCRIBE_TIMEOUT", 300*time.Second),
			MatchTimeout:    envDuration("OPENROUTER_MATCH_TIMEOUT", 120*time.Second),
			Referer:         os.Getenv("OPENROUTER_REFERER"),
			Title:           envString("OPENROUTER_TITLE", "sign-vision"),
		},
		Storage: StorageConfig{
			MediaDir:  envString("MEDIA_DIR", "media"),
			CachePath: envString("SIGN_DESCRIPTIONS_PATH", "sign_descriptions.json"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			PublicURL:      strings.TrimRight(os.Getenv("WEB_PUBLIC_URL"), "/"),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Prices: prices,
	}
}

// Validate checks settings every model-calling command depends on.
func (c *Config) Validate() error {
	if c.OpenRouter.APIKey == "" {
		return errors.New("OPENROUTER_API_KEY environment variable is required")
	}
	if c.OpenRouter.Model == "" {
		return errors.New("OPENROUTER_MODEL must not be empty")
	}
	return nil
}

// GetModelPricing returns pricing for a specific model, zero if unknown.
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	return ModelPricing{}
}
