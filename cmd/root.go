package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"presswork/internal/cms"
	"presswork/internal/config"
)

// Exit codes for CLI commands, stable for scripting and automation.
const (
	// ExitCodeSuccess indicates a successful run.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a failed run or a general error.
	ExitCodeError = 1
	// ExitCodeConfigInvalid indicates the configuration failed validation.
	ExitCodeConfigInvalid = 2
	// ExitCodeSafetyBlocked indicates pre-publish validation refused the
	// terminal action.
	ExitCodeSafetyBlocked = 3
	// ExitCodeAmbiguous indicates the post went live but its confirmation was
	// lost. The result needs a human look; a blind retry risks a duplicate
	// post.
	ExitCodeAmbiguous = 4
)

// rootCmd represents the base command for the presswork application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "presswork",
	Short: "Publish articles through a CMS admin UI",
	Long: `presswork publishes articles into a WordPress-class CMS by driving
its admin UI: a selector-driven browser provider first, with a
model-driven fallback when the DOM path fails. Every run produces a
structured result covering phases, retries, failovers, and cost.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
// This can be used by other commands to access the build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "presswork version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var ambiguous *ambiguousPublishError
	if errors.As(err, &ambiguous) {
		return ExitCodeAmbiguous
	}

	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		return ExitCodeConfigInvalid
	}
	var verr config.ValidationError
	if errors.As(err, &verr) {
		return ExitCodeConfigInvalid
	}

	var runErr *cms.RunError
	if errors.As(err, &runErr) {
		switch runErr.Kind {
		case cms.ErrSafetyBlocked:
			return ExitCodeSafetyBlocked
		case cms.ErrConfigInvalid:
			return ExitCodeConfigInvalid
		}
	}

	return ExitCodeError
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands to the root command.
func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
