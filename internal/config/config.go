// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	DBPath        string
	APIBaseURL    string
	StreamURL     string
	AllowedOrigin string
	HTTPTimeout   time.Duration
	Providers     ProviderConfig
}

// ProviderConfig holds OAuth provider credentials for the social login
// entry points the widget renders.
type ProviderConfig struct {
	RedirectBase       string
	KakaoClientID      string
	KakaoClientSecret  string
	NaverClientID      string
	NaverClientSecret  string
	GithubClientID     string
	GithubClientSecret string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/widget.db"),
		APIBaseURL:    getEnv("API_BASE_URL", "https://api.comment-lab.app"),
		StreamURL:     getEnv("STREAM_URL", "wss://api.comment-lab.app/ws/alarm"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		HTTPTimeout:   30 * time.Second,
		Providers: ProviderConfig{
			RedirectBase:       getEnv("OAUTH_REDIRECT_BASE", ""),
			KakaoClientID:      getEnv("KAKAO_CLIENT_ID", ""),
			KakaoClientSecret:  getEnv("KAKAO_CLIENT_SECRET", ""),
			NaverClientID:      getEnv("NAVER_CLIENT_ID", ""),
			NaverClientSecret:  getEnv("NAVER_CLIENT_SECRET", ""),
			GithubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			GithubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL cannot be empty")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL")
	}
	if c.StreamURL == "" {
		return fmt.Errorf("STREAM_URL cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.Contains(c.APIBaseURL, "localhost") ||
		strings.Contains(c.APIBaseURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
