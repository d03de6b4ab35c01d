package formatting

import (
	"encoding/json"
	"fmt"

	"presswork/internal/cms"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// FormatResult formats the run summary as JSON
func (f *JSONFormatter) FormatResult(res *cms.PublishResult) string {
	if res == nil {
		return "null"
	}
	return f.marshal(res)
}

// FormatPhases formats the phase timeline as JSON
func (f *JSONFormatter) FormatPhases(res *cms.PublishResult) string {
	if res == nil || len(res.Phases) == 0 {
		return "[]"
	}
	return f.marshal(res.Phases)
}

// FormatSafetyChecks formats the preflight report as JSON
func (f *JSONFormatter) FormatSafetyChecks(checks []cms.SafetyCheck) string {
	if len(checks) == 0 {
		return "[]"
	}
	return f.marshal(checks)
}

// FormatData formats generic data as JSON
func (f *JSONFormatter) FormatData(data interface{}) error {
	fmt.Println(f.marshal(data))
	return nil
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

// marshal converts data to JSON string with appropriate formatting
func (f *JSONFormatter) marshal(data interface{}) string {
	if !f.options.Quiet {
		return PrettyJSON(data)
	}

	// Compact JSON for quiet mode
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf(`{"error": "Failed to format JSON: %v"}`, err)
	}
	return string(jsonBytes)
}
