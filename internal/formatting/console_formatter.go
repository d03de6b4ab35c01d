package formatting

import (
	"encoding/json"
	"fmt"
	"strings"

	"presswork/internal/cms"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{
		options: options,
	}
}

// FormatResult formats the run summary for console output
func (f *ConsoleFormatter) FormatResult(res *cms.PublishResult) string {
	if res == nil {
		return "No result."
	}

	var output []string
	output = append(output, fmt.Sprintf("Task:      %s", res.TaskID))

	switch {
	case res.Success:
		output = append(output, "Outcome:   success")
	case res.Error != nil:
		output = append(output, fmt.Sprintf("Outcome:   failed (%s at %s)", res.Error.Kind, res.Error.Phase))
		output = append(output, fmt.Sprintf("Reason:    %s", res.Error.Message))
	default:
		output = append(output, "Outcome:   failed")
	}

	provider := res.FinalProvider
	if res.FallbackUsed {
		provider = fmt.Sprintf("%s (failed over from %s: %s)", res.FinalProvider, res.OriginalProvider, res.FallbackReason)
	}
	output = append(output, fmt.Sprintf("Provider:  %s", provider))

	if res.PostID != "" {
		output = append(output, fmt.Sprintf("Post ID:   %s", res.PostID))
	}
	if res.PublishedURL != "" {
		output = append(output, fmt.Sprintf("URL:       %s", res.PublishedURL))
	}
	if res.RecoveryOutcome != "" {
		output = append(output, fmt.Sprintf("Recovery:  %s", res.RecoveryOutcome))
	}

	output = append(output, fmt.Sprintf("Duration:  %s", FormatDuration(res.Duration)))
	output = append(output, fmt.Sprintf("Retries:   %d", res.RetryCount))
	output = append(output, fmt.Sprintf("Cost:      $%.4f", res.CostEstimate))

	if len(res.Warnings) > 0 && !f.options.Quiet {
		output = append(output, fmt.Sprintf("Warnings (%d):", len(res.Warnings)))
		for _, w := range res.Warnings {
			output = append(output, "  - "+w)
		}
	}

	return strings.Join(output, "\n")
}

// FormatPhases formats the phase timeline for console output
func (f *ConsoleFormatter) FormatPhases(res *cms.PublishResult) string {
	if res == nil || len(res.Phases) == 0 {
		return "No phases ran."
	}

	var output []string
	output = append(output, fmt.Sprintf("Phases (%d):", len(res.Phases)))
	for i, ph := range res.Phases {
		switch ph.Status {
		case cms.PhaseSkipped:
			output = append(output, fmt.Sprintf("  %2d. %-18s %-10s %s", i+1, ph.Name, ph.Status, ph.Provider))
		default:
			output = append(output, fmt.Sprintf("  %2d. %-18s %-10s %s, %d attempt(s), %s",
				i+1, ph.Name, ph.Status, ph.Provider, ph.Attempts, FormatDuration(ph.Duration)))
		}
		if ph.Error != "" {
			output = append(output, "      "+Truncate(ph.Error, 120))
		}
	}
	return strings.Join(output, "\n")
}

// FormatSafetyChecks formats the preflight report for console output
func (f *ConsoleFormatter) FormatSafetyChecks(checks []cms.SafetyCheck) string {
	if len(checks) == 0 {
		return "No safety checks ran."
	}

	var output []string
	output = append(output, fmt.Sprintf("Safety checks (%d):", len(checks)))
	for _, c := range checks {
		mark := "ok  "
		if !c.Passed {
			mark = "FAIL"
			if !c.Critical {
				mark = "warn"
			}
		}
		output = append(output, fmt.Sprintf("  %s %-18s %s", mark, c.Name, c.Message))
	}
	return strings.Join(output, "\n")
}

// FormatData formats generic data (fallback to simple text representation)
func (f *ConsoleFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		fmt.Println(f.prettyJSON(d))
	case []interface{}:
		fmt.Println(f.prettyJSON(d))
	case string:
		fmt.Println(d)
	default:
		fmt.Printf("%v\n", d)
	}
	return nil
}

// SetOptions updates the formatter options
func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}

// prettyJSON formats JSON data with indentation
func (f *ConsoleFormatter) prettyJSON(v interface{}) string {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting JSON: %v", err)
	}
	return string(jsonBytes)
}
