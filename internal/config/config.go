// Package config handles meshbuilder configuration loading and management.
package config

// Config holds all build settings.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig controls where source meshes are discovered.
type InputConfig struct {
	Dir       string `yaml:"dir"`       // Directory scanned for sources (non-recursive)
	Extension string `yaml:"extension"` // Source file suffix, matched case-insensitively
}

// OutputConfig controls where encoded containers are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`       // Empty means next to each source file
	Extension string `yaml:"extension"` // Container file suffix
}

// BuildConfig holds conversion settings.
type BuildConfig struct {
	Jobs int `yaml:"jobs"` // Files converted concurrently; 1 is sequential
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dir:       "./resources/models/",
			Extension: ".obj",
		},
		Output: OutputConfig{
			Dir:       "",
			Extension: ".aobj",
		},
		Build: BuildConfig{
			Jobs: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
