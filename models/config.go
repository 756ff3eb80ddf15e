// Package models defines data structures for configuration and scraped records.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "https://www.apkmirror.com"
	DefaultUserAgent      = "Mozilla/5.0 (Linux; Android 13; Pixel 5 Build/TQ3A.230901.001; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/118.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	DefaultAcceptLanguage = "en-IN,en-US;q=0.9,en;q=0.8"
	DefaultRequestedWith  = "cf.vojtechh.apkmirror"
	DefaultConfigFile     = "downapk.yaml"
)

// HeaderProfile is the fixed set of request headers sent with every request.
// It is built once and handed to the fetcher at construction time.
type HeaderProfile struct {
	UserAgent      string `yaml:"user_agent"`
	Accept         string `yaml:"accept"`
	AcceptLanguage string `yaml:"accept_language"`
	RequestedWith  string `yaml:"requested_with,omitempty"`
}

// ClientConfig holds runtime configuration for a scraping session.
// Values come from defaults, an optional YAML file and CLI flags (in that order).
type ClientConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Headers    HeaderProfile `yaml:"headers"`
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Proxy      string        `yaml:"proxy,omitempty"`
	CookieFile string        `yaml:"cookie_file,omitempty"`

	CacheDir string        `yaml:"cache_dir"`
	MaxAge   time.Duration `yaml:"max_age"` // 0 disables the page cache

	DBPath      string `yaml:"db_path,omitempty"`
	WorkerCount int    `yaml:"workers"`
}

// DefaultClientConfig returns the configuration used when nothing else is provided.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: DefaultBaseURL,
		Headers: HeaderProfile{
			UserAgent:      DefaultUserAgent,
			Accept:         DefaultAccept,
			AcceptLanguage: DefaultAcceptLanguage,
			RequestedWith:  DefaultRequestedWith,
		},
		Timeout:     2 * time.Minute,
		RateLimit:   4,
		CacheDir:    "downapk-cache",
		MaxAge:      time.Hour,
		WorkerCount: 4,
	}
}

// LoadConfig overlays the YAML file at path on top of the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func LoadConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting that would make the session unusable.
func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Headers.UserAgent == "" {
		return fmt.Errorf("user agent is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit)
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max age must not be negative, got %s", c.MaxAge)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	return nil
}
