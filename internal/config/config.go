// Package config loads markmesh settings from YAML, the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vearutop/markmesh"
)

// Environment variables that override file settings.
const (
	EnvAddr           = "MARKMESH_ADDR"
	EnvAlpha          = "MARKMESH_ALPHA"
	EnvLogLevel       = "MARKMESH_LOG_LEVEL"
	EnvMaxUploadBytes = "MARKMESH_MAX_UPLOAD_BYTES"
	EnvInterpolation  = "MARKMESH_INTERPOLATION"
	EnvReportDir      = "MARKMESH_REPORT_DIR"
)

// Config is the runtime configuration shared by the CLI and the HTTP server.
type Config struct {
	Addr           string              `yaml:"addr"`
	Alpha          float64             `yaml:"alpha"`
	Thresholds     markmesh.Thresholds `yaml:"thresholds"`
	MaxUploadBytes int64               `yaml:"max_upload_bytes"`
	LogLevel       string              `yaml:"log_level"`
	// Interpolation names the kernel fitting the watermark to the luma row pairs.
	Interpolation string `yaml:"interpolation"`
	// ReportDir holds verification reports served by the HTTP server, empty disables them.
	ReportDir string `yaml:"report_dir"`
}

// Default returns the canonical settings.
func Default() Config {
	return Config{
		Addr:           ":8080",
		Alpha:          markmesh.DefaultAlpha,
		Thresholds:     markmesh.DefaultThresholds(),
		MaxUploadBytes: 16 << 20,
		LogLevel:       "info",
		Interpolation:  markmesh.InterpolationBilinear.String(),
		ReportDir:      "reports",
	}
}

// Load reads the optional YAML file at path on top of the defaults, then applies
// environment overrides. A .env file in the working directory is loaded first
// when present; variables already set in the process win.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvInterpolation); ok && v != "" {
		c.Interpolation = v
	}
	if v, ok := lookup(EnvReportDir); ok {
		c.ReportDir = v
	}
	if v, ok := lookup(EnvAlpha); ok && v != "" {
		alpha, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAlpha, err)
		}
		c.Alpha = alpha
	}
	if v, ok := lookup(EnvMaxUploadBytes); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxUploadBytes, err)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if !(c.Alpha > 0) {
		return fmt.Errorf("alpha must be positive, got %v", c.Alpha)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	t := c.Thresholds
	if t.PSNR < 0 {
		return fmt.Errorf("psnr threshold must not be negative, got %v", t.PSNR)
	}
	if t.SSIM < -1 || t.SSIM > 1 {
		return fmt.Errorf("ssim threshold must be within [-1, 1], got %v", t.SSIM)
	}
	if t.Correlation < -1 || t.Correlation > 1 {
		return fmt.Errorf("correlation threshold must be within [-1, 1], got %v", t.Correlation)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := markmesh.ParseInterpolation(c.Interpolation); err != nil {
		return err
	}
	return nil
}

// Kernel returns the configured interpolation, bilinear when the name is invalid.
func (c Config) Kernel() markmesh.Interpolation {
	k, err := markmesh.ParseInterpolation(c.Interpolation)
	if err != nil {
		return markmesh.InterpolationBilinear
	}
	return k
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}
