package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// maskSecret keeps the first and last four characters of a secret.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 8 {
		return "***"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// maskTelegramToken leaves the bot ID visible for diagnostics.
func maskTelegramToken(token string) string {
	botID, secret, ok := strings.Cut(token, ":")
	if !ok {
		return maskSecret(token)
	}
	return botID + ":" + maskSecret(secret)
}

// ValidationError is a configuration problem tied to one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// formatValidationError builds a ValidationError, masking the offending value.
func formatValidationError(field, message, secret string) error {
	msg := field + ": " + message
	if secret != "" {
		msg += " (value: " + maskSecret(secret) + ")"
	}
	return &ValidationError{Field: field, Message: msg}
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Discovery.LDAP.Password = maskSecret(c.Discovery.LDAP.Password)
	out.Notify.Telegram.Token = maskTelegramToken(c.Notify.Telegram.Token)
	return &out
}

// TOML renders the configuration with secrets masked.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
}
