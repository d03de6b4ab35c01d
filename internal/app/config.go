package app

// Config holds the application bootstrap settings assembled from CLI flags
// before any settings file is read.
type Config struct {
	// Debug forces debug-level logging regardless of the configured level.
	Debug bool

	// Quiet discards log output. One-shot commands whose stdout is the
	// result document (json, yaml) set it so diagnostics cannot corrupt the
	// output stream.
	Quiet bool

	// ConfigPath is the configuration directory. Empty selects the default
	// (~/.config/presswork). The directory may be absent; the compiled-in
	// defaults then apply.
	ConfigPath string

	// Version is the build version, reported by the ops server's health
	// endpoint and the startup log line.
	Version string
}

// NewConfig creates a new application configuration from CLI flags.
func NewConfig(debug, quiet bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		Quiet:      quiet,
		ConfigPath: configPath,
		Version:    version,
	}
}
