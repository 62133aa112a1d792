package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds the full application configuration. Sensitive or
// environment-specific values can be overridden through env vars after load.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Binance struct {
			WSURL   string `yaml:"ws_url"`
			RestURL string `yaml:"rest_url"`
		} `yaml:"binance"`
	} `yaml:"api"`

	Feed struct {
		TeardownGraceMS int `yaml:"teardown_grace_ms"`
		InboxSize       int `yaml:"inbox_size"`
	} `yaml:"feed"`

	Search struct {
		DebounceMS int `yaml:"debounce_ms"`
		MaxResults int `yaml:"max_results"`
	} `yaml:"search"`

	Storage struct {
		Path string `yaml:"path"` // empty = per-user config dir
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.TeardownGraceMS == 0 {
		c.Feed.TeardownGraceMS = 3000
	}
	if c.Feed.InboxSize == 0 {
		c.Feed.InboxSize = 256
	}
	if c.Search.DebounceMS == 0 {
		c.Search.DebounceMS = 500
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 10
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.API.Binance.WSURL == "" || (!hasPrefix(c.API.Binance.WSURL, "ws://") && !hasPrefix(c.API.Binance.WSURL, "wss://")) {
		return fmt.Errorf("invalid Binance WS URL: %s", c.API.Binance.WSURL)
	}
	if c.API.Binance.RestURL == "" || (!hasPrefix(c.API.Binance.RestURL, "http://") && !hasPrefix(c.API.Binance.RestURL, "https://")) {
		return fmt.Errorf("invalid Binance REST URL: %s", c.API.Binance.RestURL)
	}
	if c.Feed.TeardownGraceMS < 0 {
		return fmt.Errorf("teardown grace must not be negative")
	}
	if c.Search.DebounceMS <= 0 {
		return fmt.Errorf("debounce window must be positive")
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variable overrides when present.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("EQUALS_BINANCE_WS_URL"); url != "" {
		cfg.API.Binance.WSURL = url
	}
	if url := os.Getenv("EQUALS_BINANCE_REST_URL"); url != "" {
		cfg.API.Binance.RestURL = url
	}
	if path := os.Getenv("EQUALS_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}
