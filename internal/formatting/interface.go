// Package formatting renders publish results, phase timelines, and safety
// reports for the CLI.
//
// All commands go through the same Formatter so a run looks identical whether
// it was triggered one-shot or replayed from a result file, with support for
// multiple output formats (console, JSON, YAML, table).
package formatting

import (
	"presswork/internal/cms"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Plain console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// Formatter renders run artifacts in one output format.
type Formatter interface {
	// FormatResult renders the run summary: outcome, providers, post
	// coordinates, cost, and warnings.
	FormatResult(res *cms.PublishResult) string

	// FormatPhases renders the per-phase timeline of a result.
	FormatPhases(res *cms.PublishResult) string

	// FormatSafetyChecks renders the preflight report recorded on a result.
	FormatSafetyChecks(checks []cms.SafetyCheck) string

	// Generic data formatting (for configuration dumps and check reports)
	FormatData(data interface{}) error

	// Configuration
	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

// factory implements the Factory interface
type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}
