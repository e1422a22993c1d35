package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound     = errors.New("no configuration file found")
	ErrBuildDirNotSet     = errors.New("build_dir is not configured")
	ErrTemplateDirMissing = errors.New("template directory does not exist")
	ErrInvalidTimeout     = errors.New("timeout must not be negative")
	ErrInvalidRetries     = errors.New("max_retries must not be negative")
	ErrInvalidRate        = errors.New("requests_per_second must not be negative")
)

const (
	// LegacyConfigName is the JSON file the tool historically read from the working directory
	LegacyConfigName = "pkg_build.cfg"
	// DefaultTemplateDir holds one template directory per package
	DefaultTemplateDir = "unsupported-pkgs"
	// DefaultUserAgent is sent with every upstream request
	DefaultUserAgent = "Slackware-Linux"
	// DefaultTimeout bounds a single request, including reading the body
	DefaultTimeout = 5 * time.Minute
)

// Config represents the application configuration.
// The file may be JSON or YAML; JSON is valid YAML so the legacy
// pkg_build.cfg loads unchanged.
type Config struct {
	BuildDir          string        `yaml:"build_dir"`
	TemplateDir       string        `yaml:"template_dir,omitempty"`
	SourcesFile       string        `yaml:"sources_file,omitempty"` // Optional TOML package catalog
	StateDir          string        `yaml:"state_dir,omitempty"`
	UserAgent         string        `yaml:"user_agent,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	KeepPartial       bool          `yaml:"keep_partial,omitempty"` // Leave half-staged build directories on failure
	Notify            *bool         `yaml:"notify,omitempty"`
	LogFile           string        `yaml:"log_file,omitempty"`
	GitHubToken       string        `yaml:"github_token,omitempty"` // Sent to api.github.com only; ${VAR} is expanded
}

// ConfigPaths returns all possible config file paths in priority order
// 1. ./pkg_build.cfg (legacy, working directory)
// 2. ~/.config/sbupdate/config.yaml (XDG standard)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		LegacyConfigName,
		filepath.Join(xdgConfig, "sbupdate", "config.yaml"),
	}, nil
}

// FindConfigPath returns the first existing config file path
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: looked in %s", ErrConfigNotFound, strings.Join(paths, ", "))
}

// Load reads configuration from the first available config file
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads, defaults and validates configuration from a specific file path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes configuration content, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields and expands ~ in paths
func (c *Config) ApplyDefaults() {
	if c.TemplateDir == "" {
		c.TemplateDir = DefaultTemplateDir
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.StateDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.StateDir = filepath.Join(home, ".config", "sbupdate", "state")
		}
	}

	c.BuildDir = ExpandHome(c.BuildDir)
	c.TemplateDir = ExpandHome(c.TemplateDir)
	c.SourcesFile = ExpandHome(c.SourcesFile)
	c.StateDir = ExpandHome(c.StateDir)
	c.LogFile = ExpandHome(c.LogFile)
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BuildDir) == "" {
		return ErrBuildDirNotSet
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	return nil
}

// CheckTemplateDir reports whether the template root exists and is a directory
func (c *Config) CheckTemplateDir() error {
	info, err := os.Stat(c.TemplateDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrTemplateDirMissing, c.TemplateDir)
	}
	return nil
}

// NotifyEnabled reports whether desktop notifications are wanted (default true)
func (c *Config) NotifyEnabled() bool {
	return c.Notify == nil || *c.Notify
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
