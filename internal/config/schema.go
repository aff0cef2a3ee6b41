// Package config provides configuration loading and validation for profsweep.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [run]: mode, inactivity threshold, concurrency, users root, host list
//   - [remote]: transport (command or fixture), PowerShell host, timeouts, retries
//   - [reachability]: liveness probe port, timeout and concurrency
//   - [discovery]: hosts file and LDAP directory lookup
//   - [identity]: directory-backed SID translation
//   - [logging]: level, format and output of diagnostic logs
//   - [metrics]: prometheus textfile export
//   - [notify.telegram]: run summary notifications
//   - [schedule]: cron expression for the schedule command
//
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: password = "${PROFSWEEP_LDAP_PASSWORD}"
package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Run          RunConfig          `toml:"run"`
	Remote       RemoteConfig       `toml:"remote"`
	Reachability ReachabilityConfig `toml:"reachability"`
	Discovery    DiscoveryConfig    `toml:"discovery"`
	Identity     IdentityConfig     `toml:"identity"`
	Logging      LoggingConfig      `toml:"logging"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Notify       NotifyConfig       `toml:"notify"`
	Schedule     ScheduleConfig     `toml:"schedule"`
}

// RunConfig controls what a run does.
type RunConfig struct {
	DryRun       *bool  `toml:"dry_run"`       // default true
	InactiveDays *int   `toml:"inactive_days"` // default 90
	Concurrency  int    `toml:"concurrency"`
	UsersRoot    string `toml:"users_root"`
	IncludeSize  bool   `toml:"include_size"`
	// LockFile, when set, keeps concurrent runs from overlapping.
	LockFile string `toml:"lock_file"`
	// Computers is either a comma separated string or an array of names.
	Computers any `toml:"computers"`
}

// IsDryRun reports the effective mode.
func (r RunConfig) IsDryRun() bool {
	return r.DryRun == nil || *r.DryRun
}

// Days returns the effective inactivity threshold.
func (r RunConfig) Days() int {
	if r.InactiveDays == nil {
		return 0
	}
	return *r.InactiveDays
}

// RemoteConfig selects and tunes the remote transport.
type RemoteConfig struct {
	Transport      string   `toml:"transport"` // "command" or "fixture"
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MaxAttempts    int      `toml:"max_attempts"`
	Backoff        string   `toml:"backoff"` // none, fixed, exponential
	FixturePath    string   `toml:"fixture_path"`
}

// Timeout returns the per-call timeout.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// ReachabilityConfig tunes the liveness probe.
type ReachabilityConfig struct {
	Port           int `toml:"port"`
	TimeoutSeconds int `toml:"timeout_seconds"`
	Concurrency    int `toml:"concurrency"`
}

// Timeout returns the probe timeout.
func (r ReachabilityConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// DiscoveryConfig lists host sources used when run.computers is empty.
type DiscoveryConfig struct {
	HostsFile string     `toml:"hosts_file"`
	LDAP      LDAPConfig `toml:"ldap"`
}

// LDAPConfig configures directory queries through ldapsearch.
type LDAPConfig struct {
	Enabled      bool   `toml:"enabled"`
	Binary       string `toml:"binary"`
	Host         string `toml:"host"`
	BaseDN       string `toml:"base_dn"`
	BindDN       string `toml:"bind_dn"`
	Password     string `toml:"password"`
	UseLDAPS     bool   `toml:"use_ldaps"`
	ServerMarker string `toml:"server_marker"`
	Domain       string `toml:"domain"`
}

// IdentityConfig controls SID translation.
type IdentityConfig struct {
	DirectoryLookup bool `toml:"directory_lookup"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// MetricsConfig configures the prometheus textfile export.
type MetricsConfig struct {
	Textfile  string `toml:"textfile"`
	Namespace string `toml:"namespace"`
}

// NotifyConfig groups notification channels.
type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  int64  `toml:"chat_id"`
}

// ScheduleConfig holds the cron expression used by the schedule command.
type ScheduleConfig struct {
	Cron string `toml:"cron"`
}
