package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeSzuru()
	if err := c.normalizeImport(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSzuru() {
	envFallback(&c.Szuru.BaseURL, "SZURU_BASE")
	envFallback(&c.Szuru.User, "SZURU_USER")
	envFallback(&c.Szuru.Password, "SZURU_PASSWORD")
	envFallback(&c.Szuru.Token, "SZURU_TOKEN")
	envFallback(&c.Szuru.AuthMode, "SZURU_AUTH_MODE")

	c.Szuru.BaseURL = strings.TrimRight(strings.TrimSpace(c.Szuru.BaseURL), "/")
	c.Szuru.User = strings.TrimSpace(c.Szuru.User)
	c.Szuru.Token = strings.TrimSpace(c.Szuru.Token)
	c.Szuru.AuthMode = strings.ToLower(strings.TrimSpace(c.Szuru.AuthMode))
	if c.Szuru.AuthMode == "" {
		c.Szuru.AuthMode = defaultAuthMode
	}
	if c.Szuru.RequestTimeout <= 0 {
		c.Szuru.RequestTimeout = defaultRequestTimeout
	}
}

// envFallback fills an empty field from the environment.
func envFallback(field *string, key string) {
	if strings.TrimSpace(*field) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*field = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeImport() error {
	var err error
	envFallback(&c.Import.DownloadDir, "SZURU_DOWNLOAD_DIR")
	if strings.TrimSpace(c.Import.DownloadDir) == "" {
		c.Import.DownloadDir = defaultDownloadDir
	}
	if c.Import.DownloadDir, err = expandPath(c.Import.DownloadDir); err != nil {
		return fmt.Errorf("import.download_dir: %w", err)
	}
	c.Import.GalleryDLBinary = strings.TrimSpace(c.Import.GalleryDLBinary)
	if c.Import.GalleryDLBinary == "" {
		c.Import.GalleryDLBinary = defaultGalleryDLBinary
	}
	c.Import.DefaultSafety = strings.ToLower(strings.TrimSpace(c.Import.DefaultSafety))
	if c.Import.DefaultSafety == "" {
		c.Import.DefaultSafety = defaultSafety
	}
	patterns := make([]string, 0, len(c.Import.SkipPatterns))
	seen := make(map[string]struct{}, len(c.Import.SkipPatterns))
	for _, pattern := range c.Import.SkipPatterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		patterns = append(patterns, trimmed)
	}
	c.Import.SkipPatterns = patterns
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	envFallback(&c.Server.APIToken, "SZURUTOOLS_API_TOKEN")
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
