package config

import "time"

// Config represents the complete application configuration.
// Values come from defaults, an optional YAML file, then PROPERTYDETAILS_*
// environment variables, in increasing precedence.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Health      HealthConfig      `mapstructure:"health" yaml:"health"`
	Upstream    UpstreamConfig    `mapstructure:"upstream" yaml:"upstream"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit" yaml:"rate_limit"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	ClientLimit ClientLimitConfig `mapstructure:"client_limit" yaml:"client_limit"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Profile selects the logging complexity level (simple, structured)
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the dedicated Prometheus exporter port. The main server proxies
	// it at /metrics.
	Port int `mapstructure:"port" yaml:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// UpstreamConfig describes how to reach the property-data provider.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret string        `mapstructure:"api_secret" yaml:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MockResponse serves the canned fixture instead of calling the provider.
	MockResponse bool `mapstructure:"mock_response" yaml:"mock_response"`

	// FixturePath replaces the embedded fixture when set.
	FixturePath string `mapstructure:"fixture_path" yaml:"fixture_path"`
}

// RateLimitConfig selects where the provider reset deadline is kept.
type RateLimitConfig struct {
	// Backend is one of memory, libsql, redis.
	Backend string `mapstructure:"backend" yaml:"backend"`
	Key     string `mapstructure:"key" yaml:"key"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Path      string `mapstructure:"path" yaml:"path"`
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// RedisConfig configures the shared deadline backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// AuthConfig lists bearer tokens accepted on the lookup endpoint. An empty
// list disables authentication.
type AuthConfig struct {
	Tokens []string `mapstructure:"tokens" yaml:"tokens"`
}

// ClientLimitConfig throttles individual callers so one client cannot burn
// the shared provider quota.
type ClientLimitConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	RPS     float64       `mapstructure:"rps" yaml:"rps"`
	Burst   int           `mapstructure:"burst" yaml:"burst"`
	IdleTTL time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
}

// Mode names the upstream mode selected by MockResponse.
func (u UpstreamConfig) Mode() string {
	if u.MockResponse {
		return "mocked"
	}
	return "live"
}
