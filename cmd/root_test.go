package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"presswork/internal/cms"
	"presswork/internal/config"
)

func TestSetVersion(t *testing.T) {
	// Test setting version
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	// Test root command properties
	if rootCmd.Use != "presswork" {
		t.Errorf("Expected Use to be 'presswork', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestVersionTemplate(t *testing.T) {
	// Create a new command to test version template
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}

	// Set the same version template as in Execute()
	testCmd.SetVersionTemplate(`{{printf "presswork version %s\n" .Version}}`)

	// Capture output
	var buf bytes.Buffer
	testCmd.SetOut(&buf)

	// Execute version command
	testCmd.SetArgs([]string{"--version"})
	err := testCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	output := buf.String()
	expected := "presswork version 1.0.0\n"
	if output != expected {
		t.Errorf("Expected version output %q, got %q", expected, output)
	}
}

func TestSubcommands(t *testing.T) {
	// Test that subcommands are added
	commands := rootCmd.Commands()

	expectedCommands := []string{"publish", "serve", "check", "version", "self-update"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "general error",
			err:  errors.New("boom"),
			want: ExitCodeError,
		},
		{
			name: "validation errors",
			err:  config.ValidationErrors{{Field: "provider", Message: "must be one of: dom, llm"}},
			want: ExitCodeConfigInvalid,
		},
		{
			name: "single validation error",
			err:  config.ValidationError{Field: "retry.max_retries", Message: "must be greater than zero"},
			want: ExitCodeConfigInvalid,
		},
		{
			name: "wrapped validation errors",
			err:  fmt.Errorf("loading configuration from /etc/presswork: %w", config.ValidationErrors{{Field: "provider", Message: "bad"}}),
			want: ExitCodeConfigInvalid,
		},
		{
			name: "safety blocked run",
			err:  &cms.RunError{Kind: cms.ErrSafetyBlocked, Phase: "safety_validation", Message: "missing featured image"},
			want: ExitCodeSafetyBlocked,
		},
		{
			name: "config invalid run",
			err:  &cms.RunError{Kind: cms.ErrConfigInvalid, Message: "no API key"},
			want: ExitCodeConfigInvalid,
		},
		{
			name: "exhausted run",
			err:  &cms.RunError{Kind: cms.ErrProviderExhausted, Phase: "login", Message: "all providers failed"},
			want: ExitCodeError,
		},
		{
			name: "ambiguous publish",
			err:  &ambiguousPublishError{taskID: "task-1"},
			want: ExitCodeAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	// Test that help can be generated without error
	var buf bytes.Buffer

	// Create a new command to avoid affecting the global one
	testRootCmd := &cobra.Command{
		Use:   "presswork",
		Short: "Publish articles through a CMS admin UI",
		Long: `presswork publishes articles into a WordPress-class CMS by driving
its admin UI: a selector-driven browser provider first, with a
model-driven fallback when the DOM path fails.`,
		SilenceUsage: true,
	}

	testRootCmd.SetOut(&buf)
	testRootCmd.SetArgs([]string{"--help"})

	err := testRootCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "presswork") {
		t.Errorf("Help output should contain 'presswork'. Got: %q", output)
	}

	if !strings.Contains(output, "WordPress-class") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}
