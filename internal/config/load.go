package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the file looked up in the working and user config directories.
const ConfigFileName = "meshbuilder.yaml"

// ErrInvalidConfig is returned when a loaded config cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// Explicit path takes priority over discovery
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		filepath.Join(".", ConfigFileName),
		filepath.Join(ConfigDir(), ConfigFileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Meshbuilder")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Meshbuilder")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshbuilder")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshbuilder")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize fills gaps left by partial files and rejects unusable values.
func (c *Config) normalize() error {
	if c.Input.Dir == "" {
		return fmt.Errorf("%w: input dir is empty", ErrInvalidConfig)
	}
	if c.Input.Extension == "" || c.Output.Extension == "" {
		return fmt.Errorf("%w: file extensions must be set", ErrInvalidConfig)
	}
	c.Input.Extension = withDot(c.Input.Extension)
	c.Output.Extension = withDot(c.Output.Extension)
	if strings.EqualFold(c.Input.Extension, c.Output.Extension) {
		return fmt.Errorf("%w: output extension %q would overwrite sources", ErrInvalidConfig, c.Output.Extension)
	}
	if c.Build.Jobs < 1 {
		c.Build.Jobs = 1
	}
	return nil
}

// withDot makes a suffix like "obj" match only the extension, not "aobj".
func withDot(ext string) string {
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
