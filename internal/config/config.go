// Package config loads tubex configuration: embedded YAML defaults, an
// optional user file on top, then environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey  = "TUBEX_API_KEY"
	EnvGateway = "TUBEX_GATEWAY"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// Config is the merged configuration for every tubex command.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Suggest SuggestConfig `yaml:"suggest"`
	Gateway GatewayConfig `yaml:"gateway"`
	UI      UIConfig      `yaml:"ui"`
}

// ClientConfig configures how the browser talks to the gateway.
type ClientConfig struct {
	Gateway        string        `yaml:"gateway"`
	Timeout        time.Duration `yaml:"timeout"`
	Region         string        `yaml:"region"`
	PageSize       int           `yaml:"page_size"`
	SearchPageSize int           `yaml:"search_page_size"`
	MaxItems       int           `yaml:"max_items"`
}

// SuggestConfig tunes the incremental suggestion engine.
type SuggestConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	RefocusDelay   time.Duration `yaml:"refocus_delay"`
	MaxSuggestions int           `yaml:"max_suggestions"`
}

// GatewayConfig configures `tubex serve`.
type GatewayConfig struct {
	Addr            string        `yaml:"addr"`
	APIBase         string        `yaml:"api_base"`
	SuggestEndpoint string        `yaml:"suggest_endpoint"`
	SuggestBase     string        `yaml:"suggest_base,omitempty"`
	APIKey          string        `yaml:"api_key,omitempty"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheSize       int           `yaml:"cache_size"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	ScrollMargin int  `yaml:"scroll_margin"`
	NoColor      bool `yaml:"no_color"`
}

// DefaultConfigYAML returns a copy of the embedded default config.
func DefaultConfigYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Default parses the embedded defaults.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, errors.New("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode embedded default config: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults merged with the file at path (if non-empty) and
// the environment. Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		// Decoding onto the populated struct keeps defaults for omitted keys.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIKey)); v != "" {
		c.Gateway.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvGateway)); v != "" {
		c.Client.Gateway = v
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Client.Gateway) == "" {
		errs = append(errs, errors.New("client.gateway must be set"))
	}
	if c.Client.PageSize <= 0 || c.Client.PageSize > 50 {
		errs = append(errs, fmt.Errorf("client.page_size must be between 1 and 50, got %d", c.Client.PageSize))
	}
	if c.Client.SearchPageSize <= 0 || c.Client.SearchPageSize > 50 {
		errs = append(errs, fmt.Errorf("client.search_page_size must be between 1 and 50, got %d", c.Client.SearchPageSize))
	}
	if c.Client.MaxItems <= 0 {
		errs = append(errs, fmt.Errorf("client.max_items must be positive, got %d", c.Client.MaxItems))
	}
	if c.Client.Timeout < 0 || c.Gateway.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must be non-negative"))
	}
	if c.Suggest.Debounce < 0 || c.Suggest.RefocusDelay < 0 {
		errs = append(errs, errors.New("suggest delays must be non-negative"))
	}
	if c.Suggest.MaxSuggestions < 0 {
		errs = append(errs, fmt.Errorf("suggest.max_suggestions must be non-negative, got %d", c.Suggest.MaxSuggestions))
	}
	if c.Gateway.RatePerSecond < 0 || c.Gateway.Burst < 0 {
		errs = append(errs, errors.New("gateway rate limits must be non-negative"))
	}
	if c.UI.ScrollMargin < 0 {
		errs = append(errs, fmt.Errorf("ui.scroll_margin must be non-negative, got %d", c.UI.ScrollMargin))
	}
	return errors.Join(errs...)
}

// ResolvePath returns explicit if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/tubex/config.yaml) or ~/.config/tubex/config.yaml when
// that file exists.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := ""
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate = filepath.Join(xdg, "tubex", "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", "tubex", "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// Marshal renders the config as YAML with the API key redacted.
func (c Config) Marshal() ([]byte, error) {
	if c.Gateway.APIKey != "" {
		c.Gateway.APIKey = "********"
	}
	return yaml.Marshal(c)
}
