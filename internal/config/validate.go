package config

import (
	"fmt"
	"strings"

	"github.com/aatumaykin/profsweep/internal/cron"
	"github.com/aatumaykin/profsweep/internal/directory"
)

const (
	TransportCommand = "command"
	TransportFixture = "fixture"

	MaxRemoteAttempts = 10
)

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Run.Days() < 0 {
		errs = append(errs, fmt.Errorf("run.inactive_days must be >= 0, got %d", c.Run.Days()))
	}
	if c.Run.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("run.concurrency must be >= 1, got %d", c.Run.Concurrency))
	}
	if strings.TrimSpace(c.Run.UsersRoot) == "" {
		errs = append(errs, fmt.Errorf("run.users_root is required"))
	}
	if _, err := directory.SplitHostList(c.Run.Computers); err != nil {
		errs = append(errs, fmt.Errorf("run.computers: %w", err))
	}

	switch c.Remote.Transport {
	case TransportCommand:
		if c.Remote.Command == "" {
			errs = append(errs, fmt.Errorf("remote.command is required when transport is 'command'"))
		}
	case TransportFixture:
		if c.Remote.FixturePath == "" {
			errs = append(errs, fmt.Errorf("remote.fixture_path is required when transport is 'fixture'"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid remote.transport: %s (expected: command, fixture)", c.Remote.Transport))
	}
	if c.Remote.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("remote.timeout_seconds must be >= 1"))
	}
	if c.Remote.MaxAttempts < 1 || c.Remote.MaxAttempts > MaxRemoteAttempts {
		errs = append(errs, fmt.Errorf("remote.max_attempts must be between 1 and %d", MaxRemoteAttempts))
	}
	switch c.Remote.Backoff {
	case "none", "fixed", "exponential":
	default:
		errs = append(errs, fmt.Errorf("invalid remote.backoff: %s (expected: none, fixed, exponential)", c.Remote.Backoff))
	}

	if c.Reachability.Port < 1 || c.Reachability.Port > 65535 {
		errs = append(errs, fmt.Errorf("reachability.port out of range: %d", c.Reachability.Port))
	}
	if c.Reachability.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("reachability.timeout_seconds must be >= 1"))
	}
	if c.Reachability.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("reachability.concurrency must be >= 1"))
	}

	if c.Discovery.LDAP.Enabled || c.Identity.DirectoryLookup {
		if c.Discovery.LDAP.Host == "" {
			errs = append(errs, fmt.Errorf("discovery.ldap.host is required when LDAP is used"))
		}
		if c.Discovery.LDAP.BaseDN == "" {
			errs = append(errs, fmt.Errorf("discovery.ldap.base_dn is required when LDAP is used"))
		}
		if c.Discovery.LDAP.BindDN != "" && c.Discovery.LDAP.Password == "" {
			errs = append(errs, formatValidationError("discovery.ldap.password", "is required with bind_dn", ""))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.Token == "" {
			errs = append(errs, fmt.Errorf("notify.telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Notify.Telegram.Token); err != nil {
			errs = append(errs, err)
		}
		if c.Notify.Telegram.ChatID == 0 {
			errs = append(errs, fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled"))
		}
	}

	if c.Schedule.Cron != "" {
		if err := cron.Validate(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
		}
	}

	return errs
}

func validateTelegramToken(token string) error {
	botID, secret, ok := strings.Cut(token, ":")
	if !ok {
		return formatValidationError("notify.telegram.token",
			"invalid format (expected <bot_id>:<token>)", token)
	}
	if len(botID) < 3 || len(botID) > 15 {
		return formatValidationError("notify.telegram.token",
			fmt.Sprintf("invalid bot ID length (expected 3-15 digits, got %d)", len(botID)), token)
	}
	for _, r := range botID {
		if r < '0' || r > '9' {
			return formatValidationError("notify.telegram.token", "bot ID must be digits only", token)
		}
	}
	if len(secret) < 10 || len(secret) > 50 {
		return formatValidationError("notify.telegram.token",
			fmt.Sprintf("invalid token length (expected 10-50 characters, got %d)", len(secret)), token)
	}
	return nil
}
