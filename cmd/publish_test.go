package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"presswork/internal/cms"
)

const testRequestYAML = `task_id: t-123
article:
  title: Hello
  body_html: <p>Hi</p>
intent:
  kind: publish_now
target:
  url: https://blog.example.com
  kind: wordpress
credentials:
  username: fileuser
  password: filepass
`

func writeRequestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write request file: %v", err)
	}
	return path
}

func TestLoadRequest(t *testing.T) {
	path := writeRequestFile(t, testRequestYAML)

	req, err := loadRequest(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if req.TaskID != "t-123" {
		t.Errorf("TaskID = %q, want t-123", req.TaskID)
	}
	if req.Article.Title != "Hello" {
		t.Errorf("Title = %q, want Hello", req.Article.Title)
	}
	if req.Intent.Kind != cms.IntentPublishNow {
		t.Errorf("Intent = %q, want publish_now", req.Intent.Kind)
	}
	if req.Target.Kind != cms.KindWordPress {
		t.Errorf("Target kind = %q, want wordpress", req.Target.Kind)
	}
	if req.Credentials.Username != "fileuser" || req.Credentials.Password != "filepass" {
		t.Error("Expected credentials from the request file")
	}
}

func TestLoadRequestEnvironmentOverridesCredentials(t *testing.T) {
	t.Setenv(envCMSUsername, "envuser")
	t.Setenv(envCMSPassword, "envpass")

	req, err := loadRequest(writeRequestFile(t, testRequestYAML))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if req.Credentials.Username != "envuser" {
		t.Errorf("Username = %q, want the environment override", req.Credentials.Username)
	}
	if req.Credentials.Password != "envpass" {
		t.Errorf("Password = %q, want the environment override", req.Credentials.Password)
	}
}

func TestLoadRequestMissingFile(t *testing.T) {
	_, err := loadRequest(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Expected error for a missing request file")
	}
	if !strings.Contains(err.Error(), "reading request file") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoadRequestMalformedYAML(t *testing.T) {
	_, err := loadRequest(writeRequestFile(t, "article: [not: closed"))
	if err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parsing request file") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestRunPublishRejectsUnknownFormat(t *testing.T) {
	originalFormat := publishOutputFormat
	defer func() { publishOutputFormat = originalFormat }()
	publishOutputFormat = "xml"

	err := runPublish(publishCmd, []string{"request.yaml"})
	if err == nil {
		t.Fatal("Expected error for unknown output format")
	}
	if !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestAmbiguousPublishDetection(t *testing.T) {
	res := &cms.PublishResult{
		Success:  true,
		Warnings: []string{"SEO_PLUGIN_MISSING: no plugin detected"},
	}
	if res.HasWarning(string(cms.ErrAmbiguousPublish)) {
		t.Error("SEO warning should not count as an ambiguous publish")
	}

	res.Warnings = append(res.Warnings, "AMBIGUOUS_PUBLISH: terminal confirmation was lost but the post shows as committed")
	if !res.HasWarning(string(cms.ErrAmbiguousPublish)) {
		t.Error("Expected the ambiguous publish warning to be detected")
	}
}

func TestAmbiguousPublishErrorMessage(t *testing.T) {
	err := &ambiguousPublishError{taskID: "t-9"}

	if !strings.Contains(err.Error(), "t-9") {
		t.Errorf("Error message should name the task, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "verify before retrying") {
		t.Errorf("Error message should warn against a blind retry, got: %s", err.Error())
	}
}
