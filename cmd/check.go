package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"presswork/internal/cms"
	"presswork/internal/config"
	"presswork/pkg/logging"
)

var checkConfigPath string

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration directory",
	Long: `Loads and validates the settings, selector bundle, and instruction
bundle from the configuration directory, then reports what a run would
use: active providers, budgets, and per-kind selector coverage.

The exit code is 2 when validation fails, so CI can gate bundle edits
before they reach a daemon.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "Configuration directory (default ~/.config/presswork)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelWarn, cmd.ErrOrStderr())

	path := checkConfigPath
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}

	out := cmd.OutOrStdout()
	cfg, err := config.Load(path)
	if err != nil {
		printValidationFailure(out, path, err)
		return err
	}

	fmt.Fprintf(out, "Configuration in %s is valid.\n\n", path)
	printSettingsSummary(out, cfg)
	printSelectorCoverage(out, cfg)
	fmt.Fprintf(out, "Instruction bundle: %d actions.\n", len(cfg.Instructions.Actions))
	return nil
}

func printValidationFailure(w io.Writer, path string, err error) {
	fmt.Fprintf(w, "Configuration in %s is invalid.\n\n", path)

	var verrs config.ValidationErrors
	if !errors.As(err, &verrs) {
		fmt.Fprintln(w, err.Error())
		return
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"FIELD", "PROBLEM"})
	for _, ve := range verrs {
		t.AppendRow(table.Row{ve.Field, ve.Message})
	}
	fmt.Fprintln(w, t.Render())
}

func printSettingsSummary(w io.Writer, cfg *config.Config) {
	s := cfg.Settings

	fallback := "disabled"
	if s.Fallback.Enabled {
		fallback = s.Fallback.Provider
	}
	safety := "enabled"
	if !s.Safety.Enabled {
		safety = "disabled"
	}
	if s.Safety.Production {
		safety += " (production)"
	}
	budget := "none"
	if s.CostBudgetUSD > 0 {
		budget = fmt.Sprintf("$%.2f", s.CostBudgetUSD)
	}
	keyState := "not set"
	if os.Getenv(s.Vision.APIKeyEnv) != "" {
		keyState = "set"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SETTING", "VALUE"})
	t.AppendRows([]table.Row{
		{"provider", s.Provider},
		{"fallback", fallback},
		{"safety", safety},
		{"retries", fmt.Sprintf("%d (base delay %s)", s.Retry.MaxRetries, s.Retry.BaseDelay)},
		{"run timeout", s.RunTimeout},
		{"cost budget", budget},
		{"vision model", s.Vision.Model},
		{"vision api key", fmt.Sprintf("%s (%s)", s.Vision.APIKeyEnv, keyState)},
		{"ops server", s.Server.Listen + s.Server.MetricsPath},
		{"log", s.Log.Level + "/" + s.Log.Format},
	})
	fmt.Fprintln(w, t.Render())
}

func printSelectorCoverage(w io.Writer, cfg *config.Config) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"KIND", "PATHS", "ELEMENTS", "SEO PROBES"})
	for _, name := range cfg.Selectors.KindNames() {
		kind := cms.Kind(name)
		ks := cfg.Selectors.Kinds[kind]
		t.AppendRow(table.Row{
			name,
			len(ks.Paths),
			len(ks.Elements),
			len(cfg.Selectors.SEOProbes(kind)),
		})
	}
	fmt.Fprintln(w, t.Render())
}
