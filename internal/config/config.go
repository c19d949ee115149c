package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"unraidmcp/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Defaults for settings not provided through the environment or a file.
const (
	DefaultMaxRetries  = 10
	DefaultHTTPTimeout = 30 * time.Second
	DefaultLogLevel    = "info"
)

// VerifyModeDefault is the TLS verification mode used when none is configured.
const VerifyModeDefault = "true"

// Config is the top-level configuration for unraidmcp.
type Config struct {
	// APIURL is the base HTTP(S) URL of the Unraid GraphQL API,
	// e.g. "https://tower.local/graphql". The /graphql suffix is optional.
	APIURL string `yaml:"apiUrl"`

	// APIKey authenticates both the HTTP client and the WebSocket
	// connection_init payload. Optional; when empty no credentials are sent.
	APIKey string `yaml:"apiKey"`

	// VerifySSL is a tri-state TLS verification mode: "true" (verify with
	// system roots), "false" (skip verification), or a path to a CA bundle
	// file.
	VerifySSL string `yaml:"verifySsl"`

	// AutoStartSubscriptions enables starting every auto-start subscription
	// when the server boots.
	AutoStartSubscriptions bool `yaml:"autoStartSubscriptions"`

	// MaxRetries caps reconnection attempts per subscription before it
	// enters the max_retries_exceeded state.
	MaxRetries int `yaml:"maxRetries"`

	// HTTPTimeout bounds request/response GraphQL calls.
	HTTPTimeout time.Duration `yaml:"httpTimeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// Environment variable names. These are the public configuration contract of
// the server and must stay stable.
const (
	EnvAPIURL     = "UNRAID_API_URL"
	EnvAPIKey     = "UNRAID_API_KEY"
	EnvVerifySSL  = "UNRAID_VERIFY_SSL"
	EnvAutoStart  = "UNRAID_WS_AUTOSTART"
	EnvMaxRetries = "UNRAID_WS_MAX_RETRIES"
	EnvTimeout    = "UNRAID_HTTP_TIMEOUT"
	EnvLogLevel   = "UNRAID_LOG_LEVEL"
)

// ErrAPIURLNotConfigured is returned by consumers that require the API URL.
// Load itself does not fail on a missing URL: the subscription manager
// records the error per attempt and self-heals once the environment is
// fixed.
var ErrAPIURLNotConfigured = errors.New("UNRAID_API_URL is not configured")

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		VerifySSL:   VerifyModeDefault,
		MaxRetries:  DefaultMaxRetries,
		HTTPTimeout: DefaultHTTPTimeout,
		LogLevel:    DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment, in that order of increasing precedence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
		logging.Info("Config", "Loaded configuration from %s", configFile)
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvAPIURL); ok {
		cfg.APIURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		cfg.APIKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvVerifySSL); ok {
		cfg.VerifySSL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvAutoStart); ok {
		cfg.AutoStartSubscriptions = parseBool(v, cfg.AutoStartSubscriptions)
	}
	if v, ok := os.LookupEnv(EnvMaxRetries); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.MaxRetries = n
		} else {
			logging.Warn("Config", "Invalid %s value %q, keeping %d", EnvMaxRetries, v, cfg.MaxRetries)
		}
	}
	if v, ok := os.LookupEnv(EnvTimeout); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		} else if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			// Plain integers are seconds, matching the original .env format.
			cfg.HTTPTimeout = time.Duration(n) * time.Second
		} else {
			logging.Warn("Config", "Invalid %s value %q, keeping %s", EnvTimeout, v, cfg.HTTPTimeout)
		}
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return b
}

// validate rejects configurations that could never work. A missing API URL
// is allowed (the server can still start and report diagnostics); a present
// but unparsable one is not.
func (c *Config) validate() error {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil {
			return fmt.Errorf("invalid API URL %q: %w", c.APIURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid API URL %q: scheme must be http or https", c.APIURL)
		}
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return nil
}

// MaskedAPIURL returns a preview of the API URL safe for diagnostics output:
// scheme and host only, with userinfo and query stripped.
func (c *Config) MaskedAPIURL() string {
	if c.APIURL == "" {
		return ""
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "(unparsable)"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
