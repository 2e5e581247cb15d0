package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "otgtrack.toml"

	// XDGConfigSubdir is the subdirectory under XDG_CONFIG_HOME for otgtrack.
	XDGConfigSubdir = "otgtrack"

	// EnvInsightsKey overrides the insights API key.
	EnvInsightsKey = "OTGTRACK_INSIGHTS_KEY"
)

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads configuration from the first of:
// 1. Explicit path (if provided)
// 2. XDG config path (~/.config/otgtrack/otgtrack.toml)
// 3. Current working directory (./otgtrack.toml)
//
// When no file exists the defaults are used and the returned path is empty.
// The insights key from the environment overrides the file in every case.
func Load(explicitPath string) (*Config, string, error) {
	cfg, path, err := load(explicitPath)
	if err != nil {
		return nil, "", err
	}
	if key := os.Getenv(EnvInsightsKey); key != "" {
		cfg.Insights.APIKey = key
	}
	return cfg, path, nil
}

func load(explicitPath string) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := loadFromFile(explicitPath)
		if err != nil {
			return nil, "", &LoadError{Path: explicitPath, Err: err}
		}
		return cfg, explicitPath, nil
	}

	if xdgPath := xdgConfigPath(); xdgPath != "" && fileExists(xdgPath) {
		cfg, err := loadFromFile(xdgPath)
		if err != nil {
			return nil, "", &LoadError{Path: xdgPath, Err: err}
		}
		return cfg, xdgPath, nil
	}

	cwdPath := filepath.Join(".", DefaultConfigFileName)
	if fileExists(cwdPath) {
		cfg, err := loadFromFile(cwdPath)
		if err != nil {
			return nil, "", &LoadError{Path: cwdPath, Err: err}
		}
		return cfg, cwdPath, nil
	}

	return Default(), "", nil
}

// loadFromFile reads and parses a TOML configuration file.
func loadFromFile(path string) (*Config, error) {
	// Start with defaults so missing values get sensible defaults
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Save writes a configuration to a TOML file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header := `# OTG Track configuration
#
# This file was generated with -init-config. Edit as needed.

`
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	return nil
}

// xdgConfigPath returns the XDG-compliant config file path.
// Returns empty string if XDG_CONFIG_HOME is not set and HOME is not available.
func xdgConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, XDGConfigSubdir, DefaultConfigFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", XDGConfigSubdir, DefaultConfigFileName)
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
