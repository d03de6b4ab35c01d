// Package logging provides a structured logging system for presswork with
// unified log handling and flexible output formatting.
//
// This package implements a logging system built on Go's standard slog package,
// providing consistent logging behavior with structured output and level filtering.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// ## Structured Logging
// All log entries include:
//   - Timestamp with nanosecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage Examples
//
// ## Initialization
//
//	import "presswork/pkg/logging"
//
//	// Initialize with Info level logging to stdout
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	// Log messages
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("DOMProvider", "SEO plugin not detected")
//	logging.Error("Orchestrator", err, "Phase %s failed", phase)
//
// ## Daemon Mode
//
//	// JSON output for log shippers
//	logging.Init(logging.LevelInfo, "json", os.Stdout)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**: Application initialization and startup
//   - **Config**: Configuration and bundle loading and validation
//   - **ConfigWatcher**: Hot reload of configuration bundles
//   - **Orchestrator**: Publish run phase machine and failover
//   - **DOMProvider**: Selector-driven browser automation
//   - **VisionProvider**: Model-driven display automation
//   - **SelectorCache**: Selector resolution caching
//   - **Safety**: Pre-publish validation
//   - **Recovery**: Post-failure demotion to draft
//   - **Audit**: Run audit trail persistence
//   - **Server**: Metrics and health HTTP endpoint
//   - **Daemon**: Long-running service lifecycle
//
// # Credential Hygiene
//
// Credentials are opaque to this codebase: no username, password, cookie
// value, or API key may be passed to any logging call at any level. Callers
// log counts and element names, never secret material.
//
// # Integration with slog
//
// The logging system integrates with Go's standard slog package:
//   - Uses slog.Handler implementations for output formatting
//   - Converts custom LogLevel to slog.Level for compatibility
//   - Provides fallback to global slog logger when needed
//
// # Thread Safety
//
// The logging system is fully thread-safe:
//   - Safe concurrent logging from multiple goroutines
//   - Protected access to shared logging state
//   - No data races in configuration
package logging
