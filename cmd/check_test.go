package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCheckValidDirectory(t *testing.T) {
	// An empty directory is valid: the compiled-in defaults apply.
	dir := t.TempDir()
	originalPath := checkConfigPath
	defer func() { checkConfigPath = originalPath }()
	checkConfigPath = dir

	var buf bytes.Buffer
	checkCmd.SetOut(&buf)
	checkCmd.SetErr(&buf)
	defer checkCmd.SetOut(nil)
	defer checkCmd.SetErr(nil)

	err := runCheck(checkCmd, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "is valid") {
		t.Errorf("Expected validity confirmation, got: %q", output)
	}
	if !strings.Contains(output, "wordpress") {
		t.Errorf("Expected the built-in kind in the coverage table, got: %q", output)
	}
}

func TestRunCheckInvalidDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("provider: bogus\n"), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	originalPath := checkConfigPath
	defer func() { checkConfigPath = originalPath }()
	checkConfigPath = dir

	var buf bytes.Buffer
	checkCmd.SetOut(&buf)
	checkCmd.SetErr(&buf)
	defer checkCmd.SetOut(nil)
	defer checkCmd.SetErr(nil)

	err := runCheck(checkCmd, nil)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	// The error must map to the configuration exit code for CI gating.
	if got := getExitCode(err); got != ExitCodeConfigInvalid {
		t.Errorf("getExitCode() = %d, want %d", got, ExitCodeConfigInvalid)
	}

	output := buf.String()
	if !strings.Contains(output, "is invalid") {
		t.Errorf("Expected invalidity report, got: %q", output)
	}
	if !strings.Contains(output, "provider") {
		t.Errorf("Expected the failing field in the report, got: %q", output)
	}
}
