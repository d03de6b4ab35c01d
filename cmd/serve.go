package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"presswork/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath specifies a custom configuration directory path.
// When empty the default (~/.config/presswork) is used.
var serveConfigPath string

// serveCmd defines the serve command structure. It runs presswork as a
// long-lived daemon instead of a one-shot publish.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the publishing core as a daemon",
	Long: `Runs presswork in daemon mode. The ops server exposes health,
readiness, and Prometheus metrics endpoints, and the configuration
directory is watched so selector and instruction edits hot-reload
without a restart. Sessions already running finish on the
configuration they started with.

The daemon integrates with systemd: it reports readiness over
sd_notify and drains the ops server on SIGTERM before exiting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, false, serveConfigPath, GetVersion())

	// Create and initialize the application
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.RunServe(ctx)
}

// init registers the serve command and its flags with the root command.
// This is called automatically when the package is imported.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Configuration directory (default ~/.config/presswork)")
}
