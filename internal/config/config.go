package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aatumaykin/profsweep/internal/constants"
)

// Load reads a TOML configuration file, applies defaults and expands
// environment references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes TOML configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)

	if err := expandEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills unset fields.
func applyDefaults(c *Config) {
	if c.Run.DryRun == nil {
		dry := true
		c.Run.DryRun = &dry
	}
	if c.Run.InactiveDays == nil {
		days := constants.DefaultInactiveDays
		c.Run.InactiveDays = &days
	}
	if c.Run.Concurrency == 0 {
		c.Run.Concurrency = constants.DefaultConcurrency
	}
	if c.Run.UsersRoot == "" {
		c.Run.UsersRoot = constants.DefaultUsersRoot
	}

	if c.Remote.Transport == "" {
		c.Remote.Transport = TransportCommand
	}
	if c.Remote.Command == "" {
		c.Remote.Command = "pwsh"
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = int(constants.DefaultRemoteTimeout.Seconds())
	}
	if c.Remote.MaxAttempts == 0 {
		c.Remote.MaxAttempts = 1
	}
	if c.Remote.Backoff == "" {
		c.Remote.Backoff = "none"
	}

	if c.Reachability.Port == 0 {
		c.Reachability.Port = constants.DefaultProbePort
	}
	if c.Reachability.TimeoutSeconds == 0 {
		c.Reachability.TimeoutSeconds = int(constants.DefaultProbeTimeout.Seconds())
	}
	if c.Reachability.Concurrency == 0 {
		c.Reachability.Concurrency = c.Run.Concurrency
	}

	if c.Discovery.LDAP.Binary == "" {
		c.Discovery.LDAP.Binary = "ldapsearch"
	}
	if c.Discovery.LDAP.ServerMarker == "" {
		c.Discovery.LDAP.ServerMarker = constants.DefaultServerMarker
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = constants.DefaultMetricsNamespace
	}
}

// expandEnvVars expands ${VAR} references in fields that commonly carry
// secrets or paths.
func expandEnvVars(c *Config) error {
	for _, p := range []*string{
		&c.Discovery.LDAP.Host,
		&c.Discovery.LDAP.BindDN,
		&c.Discovery.LDAP.Password,
		&c.Notify.Telegram.Token,
		&c.Remote.Command,
	} {
		*p = expandEnv(*p)
	}

	for _, p := range []*string{
		&c.Remote.FixturePath,
		&c.Discovery.HostsFile,
		&c.Metrics.Textfile,
		&c.Run.LockFile,
	} {
		*p = expandHome(expandEnv(*p))
	}

	if s, ok := c.Run.Computers.(string); ok {
		c.Run.Computers = expandEnv(s)
	}
	return nil
}

// expandEnv expands a value of the form ${VAR} or ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(content)
}

// expandHome expands a leading ~/ in path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
