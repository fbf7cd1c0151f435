package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate ensures the configuration is internally consistent. Board
// credentials are checked separately by RequireBoard so commands that never
// reach the board (config init, tags classify) work without them.
func (c *Config) Validate() error {
	if err := c.validateSzuru(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSzuru() error {
	switch c.Szuru.AuthMode {
	case "auto", "basic", "token":
	default:
		return fmt.Errorf("szuru.auth_mode: unsupported value %q (expected auto, basic or token)", c.Szuru.AuthMode)
	}
	if c.Szuru.BaseURL != "" {
		parsed, err := url.Parse(c.Szuru.BaseURL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("szuru.base_url: %q is not an http(s) URL", c.Szuru.BaseURL)
		}
	}
	if c.Szuru.RequestTimeout <= 0 {
		return errors.New("szuru.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateImport() error {
	switch c.Import.DefaultSafety {
	case "safe", "sketchy", "unsafe":
	default:
		return fmt.Errorf("import.default_safety: unsupported value %q (expected safe, sketchy or unsafe)", c.Import.DefaultSafety)
	}
	for _, pattern := range c.Import.SkipPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("import.skip_patterns: invalid glob %q", pattern)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// RequireBoard reports a configuration error when the board URL or the
// credentials for the selected auth mode are missing.
func (c *Config) RequireBoard() error {
	if c == nil {
		return errors.New("configuration unavailable")
	}
	hint := "~/.config/szurutools/config.toml"
	if path, err := DefaultConfigPath(); err == nil {
		hint = path
	}
	if strings.TrimSpace(c.Szuru.BaseURL) == "" {
		return fmt.Errorf("szuru.base_url is required. Set SZURU_BASE or edit %s (create with 'szurutools config init')", hint)
	}
	if c.Szuru.User == "" {
		return fmt.Errorf("szuru.user is required. Set SZURU_USER or edit %s", hint)
	}
	useToken := c.Szuru.AuthMode == "token" || (c.Szuru.AuthMode == "auto" && c.Szuru.Token != "")
	if useToken && c.Szuru.Token == "" {
		return errors.New("szuru.token is required for token auth. Set SZURU_TOKEN")
	}
	if !useToken && c.Szuru.Password == "" {
		return errors.New("szuru.password is required for basic auth. Set SZURU_PASSWORD or SZURU_TOKEN")
	}
	return nil
}
