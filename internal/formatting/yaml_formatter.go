package formatting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"presswork/internal/cms"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// FormatResult formats the run summary as YAML
func (f *YAMLFormatter) FormatResult(res *cms.PublishResult) string {
	if res == nil {
		return "null\n"
	}
	return f.marshal(res)
}

// FormatPhases formats the phase timeline as YAML
func (f *YAMLFormatter) FormatPhases(res *cms.PublishResult) string {
	if res == nil || len(res.Phases) == 0 {
		return "[]\n"
	}
	return f.marshal(res.Phases)
}

// FormatSafetyChecks formats the preflight report as YAML
func (f *YAMLFormatter) FormatSafetyChecks(checks []cms.SafetyCheck) string {
	if len(checks) == 0 {
		return "[]\n"
	}
	return f.marshal(checks)
}

// FormatData formats generic data as YAML
func (f *YAMLFormatter) FormatData(data interface{}) error {
	fmt.Print(f.marshal(data))
	return nil
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

// marshal converts data to YAML string
func (f *YAMLFormatter) marshal(data interface{}) string {
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error: \"Failed to format YAML: %v\"\n", err)
	}

	return string(yamlBytes)
}
