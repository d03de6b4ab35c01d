package formatting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"presswork/internal/cms"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatResult formats the run summary as a key/value table
func (f *TableFormatter) FormatResult(res *cms.PublishResult) string {
	if res == nil {
		return f.emptyMessage("No result")
	}

	t := f.createTable()
	t.AppendHeader(table.Row{f.header("FIELD"), f.header("VALUE")})

	outcome := f.paint(text.FgGreen, "success")
	if !res.Success {
		outcome = f.paint(text.FgRed, "failed")
		if res.Error != nil {
			outcome = f.paint(text.FgRed, fmt.Sprintf("failed (%s at %s)", res.Error.Kind, res.Error.Phase))
		}
	}

	rows := []table.Row{
		{"task", res.TaskID},
		{"outcome", outcome},
		{"provider", res.FinalProvider},
	}
	if res.FallbackUsed {
		rows = append(rows, table.Row{"fallback", fmt.Sprintf("%s -> %s (%s)", res.OriginalProvider, res.FinalProvider, res.FallbackReason)})
	}
	if res.Error != nil {
		rows = append(rows, table.Row{"error", Truncate(res.Error.Message, 100)})
	}
	if res.PostID != "" {
		rows = append(rows, table.Row{"post id", res.PostID})
	}
	if res.PublishedURL != "" {
		rows = append(rows, table.Row{"url", res.PublishedURL})
	}
	if res.RecoveryOutcome != "" {
		rows = append(rows, table.Row{"recovery", res.RecoveryOutcome})
	}
	rows = append(rows,
		table.Row{"duration", FormatDuration(res.Duration)},
		table.Row{"retries", res.RetryCount},
		table.Row{"cost", fmt.Sprintf("$%.4f", res.CostEstimate)},
	)
	if !f.options.Quiet {
		for i, w := range res.Warnings {
			rows = append(rows, table.Row{fmt.Sprintf("warning %d", i+1), f.paint(text.FgYellow, Truncate(w, 100))})
		}
	}
	t.AppendRows(rows)

	return t.Render()
}

// FormatPhases formats the phase timeline as a table
func (f *TableFormatter) FormatPhases(res *cms.PublishResult) string {
	if res == nil || len(res.Phases) == 0 {
		return f.emptyMessage("No phases ran")
	}

	t := f.createTable()
	t.AppendHeader(table.Row{
		f.header("#"), f.header("PHASE"), f.header("STATUS"),
		f.header("ATTEMPTS"), f.header("DURATION"), f.header("PROVIDER"), f.header("ERROR"),
	})

	for i, ph := range res.Phases {
		attempts := fmt.Sprintf("%d", ph.Attempts)
		duration := FormatDuration(ph.Duration)
		if ph.Status == cms.PhaseSkipped {
			attempts, duration = "-", "-"
		}
		t.AppendRow(table.Row{
			i + 1,
			ph.Name,
			f.paintStatus(ph.Status),
			attempts,
			duration,
			ph.Provider,
			Truncate(ph.Error, 60),
		})
	}

	return t.Render()
}

// FormatSafetyChecks formats the preflight report as a table
func (f *TableFormatter) FormatSafetyChecks(checks []cms.SafetyCheck) string {
	if len(checks) == 0 {
		return f.emptyMessage("No safety checks ran")
	}

	t := f.createTable()
	t.AppendHeader(table.Row{f.header("CHECK"), f.header("RESULT"), f.header("CRITICAL"), f.header("MESSAGE")})

	for _, c := range checks {
		result := f.paint(text.FgGreen, "pass")
		if !c.Passed {
			if c.Critical {
				result = f.paint(text.FgRed, "fail")
			} else {
				result = f.paint(text.FgYellow, "warn")
			}
		}
		critical := ""
		if c.Critical {
			critical = "yes"
		}
		t.AppendRow(table.Row{c.Name, result, critical, Truncate(c.Message, 80)})
	}

	return t.Render()
}

// FormatData formats generic data using table logic
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case map[string]interface{}:
		return f.formatObjectData(d)
	case []interface{}:
		return f.formatArrayData(d)
	case string:
		fmt.Println(d)
	default:
		fmt.Printf("%v\n", d)
	}
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// Helper methods

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(s string) string {
	return f.paint(text.FgHiCyan, s)
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) paintStatus(status cms.PhaseStatus) string {
	switch status {
	case cms.PhaseCompleted:
		return f.paint(text.FgGreen, string(status))
	case cms.PhaseFailed:
		return f.paint(text.FgRed, string(status))
	default:
		return f.paint(text.FgYellow, string(status))
	}
}

// emptyMessage formats empty result messages
func (f *TableFormatter) emptyMessage(message string) string {
	return f.paint(text.FgYellow, message) + "\n"
}

// formatObjectData formats object data as key-value pairs
func (f *TableFormatter) formatObjectData(data map[string]interface{}) error {
	t := f.createTable()
	t.AppendHeader(table.Row{f.header("KEY"), f.header("VALUE")})

	for key, value := range data {
		t.AppendRow(table.Row{key, Truncate(fmt.Sprintf("%v", value), 100)})
	}

	fmt.Println(t.Render())
	return nil
}

// formatArrayData formats array data as a simple listing
func (f *TableFormatter) formatArrayData(data []interface{}) error {
	if len(data) == 0 {
		fmt.Println(f.emptyMessage("No items found"))
		return nil
	}

	for i, item := range data {
		fmt.Printf("  %d. %v\n", i+1, item)
	}
	fmt.Printf("\nTotal: %d items\n", len(data))
	return nil
}
