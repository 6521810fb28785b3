package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagInputDir   = flag.String("input-dir", "", "Directory scanned for source meshes")
	flagOutputDir  = flag.String("output-dir", "", "Directory for encoded containers (default: next to sources)")
	flagJobs       = flag.Int("jobs", 0, "Number of files converted concurrently")
	flagLogFile    = flag.String("log-file", "", "Write logs to this file as well")
	flagSaveConfig = flag.Bool("save-config", false, "Save the effective config to the user config dir")
)

func init() {
	flag.StringVar(flagInputDir, "i", "", "Shorthand for -input-dir")
	flag.StringVar(flagOutputDir, "o", "", "Shorthand for -output-dir")
}

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagInputDir != "" {
		cfg.Input.Dir = *flagInputDir
	}
	if *flagOutputDir != "" {
		cfg.Output.Dir = *flagOutputDir
	}
	if *flagJobs > 0 {
		cfg.Build.Jobs = *flagJobs
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
