// Package config provides centralized configuration management.
//
// Settings are layered with viper (defaults, optional YAML file, then
// PROPERTYDETAILS_* environment variables) and decoded into a typed Config
// with mapstructure.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is used for XDG paths and the binary name.
	AppName = "propertydetails"

	// EnvPrefix prefixes every environment override, e.g. PROPERTYDETAILS_UPSTREAM_API_KEY.
	EnvPrefix = "PROPERTYDETAILS"

	DefaultUpstreamBaseURL = "https://api.housecanary.com"
)

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendLibsql = "libsql"
	BackendRedis  = "redis"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every known key so environment variables resolve
// through AllSettings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("upstream.base_url", DefaultUpstreamBaseURL)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.api_secret", "")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("upstream.mock_response", false)
	v.SetDefault("upstream.fixture_path", "")

	v.SetDefault("rate_limit.backend", BackendMemory)
	v.SetDefault("rate_limit.key", "housecanary")

	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "propertydetails:ratelimit")

	v.SetDefault("auth.tokens", []string{})

	v.SetDefault("client_limit.enabled", false)
	v.SetDefault("client_limit.rps", 5.0)
	v.SetDefault("client_limit.burst", 10)
	v.SetDefault("client_limit.idle_ttl", "15m")
}

// BindEnv wires PROPERTYDETAILS_* variables onto dotted keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes and validates the settings held by v, then caches the
// result for GetConfig. Safe to call again on reload.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode reads v into a normalized Config without validating or caching it.
// Operator commands that never reach the provider use it directly.
func Decode(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("viper instance is required")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// Validate reports settings that would make the service unusable.
func (c *Config) Validate() error {
	var problems []string

	if !c.Upstream.MockResponse {
		if c.Upstream.APIKey == "" || c.Upstream.APISecret == "" {
			problems = append(problems, "upstream.api_key and upstream.api_secret are required unless upstream.mock_response is set")
		}
		if c.Upstream.BaseURL == "" {
			problems = append(problems, "upstream.base_url is required")
		}
	}
	if c.Upstream.Timeout <= 0 {
		problems = append(problems, "upstream.timeout must be positive")
	}

	switch c.RateLimit.Backend {
	case BackendMemory, BackendRedis:
	case BackendLibsql:
		if c.Store.Path == "" && c.Store.URL == "" {
			problems = append(problems, "store.path or store.url is required for the libsql backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown rate_limit.backend %q (want memory, libsql, or redis)", c.RateLimit.Backend))
	}

	if c.ClientLimit.Enabled && (c.ClientLimit.RPS <= 0 || c.ClientLimit.Burst <= 0) {
		problems = append(problems, "client_limit.rps and client_limit.burst must be positive when enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) normalize() {
	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = BackendMemory
	}
	if strings.TrimSpace(c.RateLimit.Key) == "" {
		c.RateLimit.Key = "housecanary"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 10 * time.Second
	}

	tokens := c.Auth.Tokens[:0]
	for _, token := range c.Auth.Tokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	c.Auth.Tokens = tokens
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Upstream.APIKey = mask(c.Upstream.APIKey)
	clone.Upstream.APISecret = mask(c.Upstream.APISecret)
	clone.Store.AuthToken = mask(c.Store.AuthToken)
	clone.Redis.Password = mask(c.Redis.Password)
	clone.Auth.Tokens = make([]string, len(c.Auth.Tokens))
	for i, token := range c.Auth.Tokens {
		clone.Auth.Tokens[i] = mask(token)
	}
	return &clone
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG config directory, or "" if unresolvable.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
