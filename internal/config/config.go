// Package config loads depgraph settings from defaults, an optional TOML
// file, a .env file and DEPGRAPH_* environment variables, in that order.
// Command-line flags are applied on top by the CLI.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/matzehuels/depgraph/pkg/deps"
	"github.com/matzehuels/depgraph/pkg/errors"
	"github.com/matzehuels/depgraph/pkg/registry"
	"github.com/matzehuels/depgraph/pkg/version"
)

// EnvPrefix prefixes every environment variable read by [Config.ApplyEnv].
const EnvPrefix = "DEPGRAPH_"

// Config is the complete runtime configuration.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Resolve  ResolveConfig  `toml:"resolve"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// RegistryConfig selects and tunes the upstream registry.
type RegistryConfig struct {
	URL     string            `toml:"url"`
	Timeout time.Duration     `toml:"timeout"`
	Headers map[string]string `toml:"headers"`
}

// ResolveConfig bounds a resolution run.
type ResolveConfig struct {
	MaxDepth    int           `toml:"max_depth"`
	MaxNodes    int           `toml:"max_nodes"`
	Concurrency int           `toml:"concurrency"`
	Timeout     time.Duration `toml:"timeout"`
	Retries     int           `toml:"retries"`
	RetryDelay  time.Duration `toml:"retry_delay"`
	Policy      string        `toml:"policy"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	CORSOrigins  []string      `toml:"cors_origins"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:     registry.DefaultBaseURL,
			Timeout: registry.DefaultTimeout,
		},
		Resolve: ResolveConfig{
			MaxNodes:    deps.DefaultMaxNodes,
			Concurrency: deps.DefaultConcurrency,
			Timeout:     deps.DefaultTimeout,
			Retries:     deps.DefaultRetries,
			RetryDelay:  deps.DefaultRetryDelay,
			Policy:      string(version.PolicyLenient),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			CORSOrigins:  []string{"*"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path names a TOML file; when empty,
// DEPGRAPH_CONFIG is consulted and a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the TOML file at path into c. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides c with DEPGRAPH_* variables found through lookup.
// PORT is honored for platforms that inject it.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("REGISTRY_URL"); ok {
		c.Registry.URL = v
	}
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	if v, ok := get("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := get("POLICY"); ok {
		c.Resolve.Policy = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REGISTRY_TIMEOUT", &c.Registry.Timeout},
		{"TIMEOUT", &c.Resolve.Timeout},
		{"RETRY_DELAY", &c.Resolve.RetryDelay},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, d.key)
		}
		*d.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_DEPTH", &c.Resolve.MaxDepth},
		{"MAX_NODES", &c.Resolve.MaxNodes},
		{"CONCURRENCY", &c.Resolve.Concurrency},
		{"RETRIES", &c.Resolve.Retries},
	}
	for _, n := range ints {
		v, ok := get(n.key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, n.key)
		}
		*n.dst = parsed
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if err := errors.ValidateURL(c.Registry.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "registry.url")
	}
	if _, err := version.ParsePolicy(c.Resolve.Policy); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolve.policy")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "log.level")
	}
	checks := []struct {
		name string
		bad  bool
	}{
		{"resolve.max_depth must be >= 0", c.Resolve.MaxDepth < 0},
		{"resolve.max_nodes must be > 0", c.Resolve.MaxNodes <= 0},
		{"resolve.concurrency must be > 0", c.Resolve.Concurrency <= 0},
		{"resolve.retries must be > 0", c.Resolve.Retries <= 0},
		{"registry.timeout must be > 0", c.Registry.Timeout <= 0},
		{"server.addr must be set", c.Server.Addr == ""},
	}
	for _, chk := range checks {
		if chk.bad {
			return errors.New(errors.ErrCodeInvalidConfig, "%s", chk.name)
		}
	}
	return nil
}

// ResolverOptions converts the resolve section to resolver options.
// Validate must have succeeded.
func (c *Config) ResolverOptions(logger *log.Logger) deps.Options {
	policy, _ := version.ParsePolicy(c.Resolve.Policy)
	return deps.Options{
		MaxDepth:    c.Resolve.MaxDepth,
		MaxNodes:    c.Resolve.MaxNodes,
		Concurrency: c.Resolve.Concurrency,
		Timeout:     c.Resolve.Timeout,
		Retries:     c.Resolve.Retries,
		RetryDelay:  c.Resolve.RetryDelay,
		Policy:      policy,
		Logger:      logger,
	}
}

// RegistryOptions converts the registry section to client options.
func (c *Config) RegistryOptions() registry.Options {
	return registry.Options{
		BaseURL: c.Registry.URL,
		Timeout: c.Registry.Timeout,
		Headers: c.Registry.Headers,
	}
}

// LogLevel returns the parsed log level, info when unset or invalid.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
