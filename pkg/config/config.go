// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
)

// Config is the top-level configuration structure.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Report  ReportConfig  `koanf:"report"`
}

// AppConfig holds general application metadata.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the one-shot Prometheus text dump written after a
// run completes (spec.md §6's ambient stack — there is no long-lived metrics
// server in an offline CLI).
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	OutputPath string `koanf:"output_path"`
}

// ReportConfig configures the optional results.xlsx summary report.
type ReportConfig struct {
	XLSXEnabled        bool   `koanf:"xlsx_enabled"`
	XLSXPath           string `koanf:"xlsx_path"`
	MaxArrivalsInSheet int    `koanf:"max_arrivals_in_sheet"`
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	var errs []string

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if c.Log.Output != "" && !validOutputs[c.Log.Output] {
		errs = append(errs, fmt.Sprintf("log.output must be one of: stdout, stderr, file, got %s", c.Log.Output))
	}

	if c.Report.MaxArrivalsInSheet < 0 {
		errs = append(errs, "report.max_arrivals_in_sheet must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app is configured for development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
