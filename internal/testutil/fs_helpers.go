package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DocOption customizes a generated document header.
type DocOption func(*docConfig)

type docConfig struct {
	fields [][2]string
	body   string
}

// WithField sets a header field to a raw YAML value. Later calls for the same
// key replace the earlier value in place.
func WithField(key, rawValue string) DocOption {
	return func(c *docConfig) {
		for i := range c.fields {
			if c.fields[i][0] == key {
				c.fields[i][1] = rawValue
				return
			}
		}
		c.fields = append(c.fields, [2]string{key, rawValue})
	}
}

// WithoutField removes a header field.
func WithoutField(key string) DocOption {
	return func(c *docConfig) {
		for i := range c.fields {
			if c.fields[i][0] == key {
				c.fields = append(c.fields[:i], c.fields[i+1:]...)
				return
			}
		}
	}
}

// WithBody sets the Markdown body.
func WithBody(body string) DocOption {
	return func(c *docConfig) {
		c.body = body
	}
}

// DocContent renders a document with a compliant default header that opts
// may modify.
func DocContent(opts ...DocOption) string {
	cfg := &docConfig{
		fields: [][2]string{
			{"title", "Test document"},
			{"type", "implementation_plan"},
			{"status", "draft"},
			{"date", "2025-01-01 00:00 (UTC)"},
			{"category", "development"},
			{"tags", "[test]"},
		},
		body: "# Test document\n\nBody text.\n",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	for _, f := range cfg.fields {
		fmt.Fprintf(&sb, "%s: %s\n", f[0], f[1])
	}
	sb.WriteString("---\n")
	sb.WriteString(cfg.body)
	return sb.String()
}

// CreateTempDoc writes a generated document to dir/name and returns its path.
func CreateTempDoc(t *testing.T, dir, name string, opts ...DocOption) string {
	t.Helper()

	path := filepath.Join(dir, name)
	WriteFile(t, path, DocContent(opts...))
	return path
}

// WriteFile writes content to a file, creating parent directories if needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads file content, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}

	return string(content)
}

// configEnvVars lists environment variables that change agentqms behaviour.
var configEnvVars = []string{
	"AGENTQMS_DOCS_DIR",
	"AGENTQMS_RULES_FILE",
	"AGENTQMS_REPO_ROOT",
	"AGENTQMS_AUTO_COMMIT",
	"AGENTQMS_STATE_DIR",
	"AGENTQMS_LOG_LEVEL",
	"AGENTQMS_METRICS_FILE",
	"AGENTQMS_WORKERS",
	"AGENTQMS_EXTENSIONS",
	"AGENTQMS_EXCLUDE_DIRS",
	"AGENTQMS_INCLUDE",
	"AGENTQMS_EXCLUDE",
	"AGENTQMS_GIT_TIMEOUT",
}

// ClearConfigEnv blanks every AGENTQMS_* variable a test could inherit from
// the developer's shell. Uses t.Setenv, so callers must not be parallel.
func ClearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range configEnvVars {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}
