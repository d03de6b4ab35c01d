package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"presswork/internal/app"
	"presswork/internal/cms"
	"presswork/internal/formatting"
)

var (
	publishOutputFormat string
	publishQuiet        bool
	publishDebug        bool
	publishConfigPath   string
	publishNoColor      bool
)

// Credential environment overrides. A request file may omit the credentials
// block and supply the login pair through the environment instead, keeping
// secrets out of files that get committed or shared.
const (
	envCMSUsername = "PRESSWORK_CMS_USERNAME"
	envCMSPassword = "PRESSWORK_CMS_PASSWORD"
)

// publishCmd runs one publish request end to end.
var publishCmd = &cobra.Command{
	Use:   "publish <request.yaml>",
	Short: "Run one publish request through the orchestrator",
	Long: `Reads a publish request from a YAML file and runs it end to end:
login, draft composition, media, SEO, taxonomy, safety validation, and
the terminal action (draft, publish, or schedule).

Credentials may be omitted from the request file and supplied through
the PRESSWORK_CMS_USERNAME and PRESSWORK_CMS_PASSWORD environment
variables; when both sources are present the environment wins.

The json and yaml formats write the result document to stdout and move
all diagnostics to stderr, so the output can be piped directly.

Exit codes: 0 success, 1 run failure, 2 invalid configuration,
3 blocked by safety validation, 4 published but confirmation lost.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	format := formatting.OutputFormat(publishOutputFormat)
	switch format {
	case formatting.FormatConsole, formatting.FormatTable, formatting.FormatJSON, formatting.FormatYAML:
	default:
		return fmt.Errorf("unknown output format %q (want console, table, json, or yaml)", publishOutputFormat)
	}

	req, err := loadRequest(args[0])
	if err != nil {
		return err
	}

	// The structured formats own stdout for the result document; silence the
	// log stream so it cannot interleave.
	structured := format == formatting.FormatJSON || format == formatting.FormatYAML
	cfg := app.NewConfig(publishDebug, publishQuiet || (structured && !publishDebug), publishConfigPath, GetVersion())

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var s *spinner.Spinner
	if !publishQuiet && !structured {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Publishing to " + req.Target.URL + "..."
		s.Start()
	}

	res, runErr := application.Publish(ctx, req)

	if s != nil {
		if runErr != nil {
			s.FinalMSG = text.FgRed.Sprint("Publish run failed") + "\n"
		}
		s.Stop()
	}

	printResult(cmd, format, res)

	if runErr != nil {
		return runErr
	}
	if res != nil && res.Success && res.HasWarning(string(cms.ErrAmbiguousPublish)) {
		return &ambiguousPublishError{taskID: res.TaskID}
	}
	return nil
}

// loadRequest reads the request file and applies the credential environment
// overrides.
func loadRequest(path string) (*cms.PublishRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}

	var req cms.PublishRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing request file %s: %w", path, err)
	}

	if v := os.Getenv(envCMSUsername); v != "" {
		req.Credentials.Username = v
	}
	if v := os.Getenv(envCMSPassword); v != "" {
		req.Credentials.Password = v
	}
	return &req, nil
}

// printResult renders the result in the requested format. The structured
// formats emit one self-contained document; the console formats append the
// phase timeline and the safety report.
func printResult(cmd *cobra.Command, format formatting.OutputFormat, res *cms.PublishResult) {
	if res == nil {
		return
	}

	f := formatting.NewFactory().CreateFormatter(formatting.Options{
		Format: format,
		Quiet:  publishQuiet,
		Color:  !publishNoColor,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, f.FormatResult(res))
	if format == formatting.FormatJSON || format == formatting.FormatYAML {
		return
	}
	if !publishQuiet {
		fmt.Fprintln(out, f.FormatPhases(res))
		if len(res.SafetyChecks) > 0 {
			fmt.Fprintln(out, f.FormatSafetyChecks(res.SafetyChecks))
		}
	}
}

// ambiguousPublishError surfaces the post-went-live-but-unconfirmed case as
// its own exit code, so automation does not blindly retry a live post.
type ambiguousPublishError struct {
	taskID string
}

func (e *ambiguousPublishError) Error() string {
	return fmt.Sprintf("task %s: the post appears live but its confirmation was lost; verify before retrying", e.taskID)
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishOutputFormat, "output", "o", "console", "Output format (console, table, json, yaml)")
	publishCmd.Flags().BoolVarP(&publishQuiet, "quiet", "q", false, "Suppress decorative output")
	publishCmd.Flags().BoolVar(&publishDebug, "debug", false, "Enable debug logging")
	publishCmd.Flags().StringVar(&publishConfigPath, "config", "", "Configuration directory (default ~/.config/presswork)")
	publishCmd.Flags().BoolVar(&publishNoColor, "no-color", false, "Disable colored output")
}
