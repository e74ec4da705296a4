package config

import (
	"os"
	"path/filepath"
)

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"docs_dir":       "docs/artifacts",
		"rules_file":     "",
		"repo_root":      ".",
		"extensions":     []string{".md"},
		"exclude_dirs":   []string{".git", "node_modules"},
		"include":        []string{},
		"exclude":        []string{},
		"workers":        0,
		"git_timeout":    30,
		"commit_prefix":  "AgentQMS Auto-Fix: ",
		"auto_commit":    true,
		"date_format":    "2006-01-02 15:04 (MST)",
		"state_dir":      "~/.agentqms/state",
		"max_history":    500,
		"watch_debounce": 300,
		"log_level":      "warn",
		"metrics_file":   "",
	}
}

// GlobalConfigPath returns the user-wide config file, ~/.agentqms/config.yml.
func GlobalConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".agentqms", "config.yml"), nil
}

// LocalConfigPath returns the project config file relative to the working
// directory.
func LocalConfigPath() string {
	return filepath.Join(".agentqms", "config.yml")
}
