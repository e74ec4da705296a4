// Package config loads agentqms settings from defaults, config files and
// AGENTQMS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTQMS_"

// Configuration represents the agentqms configuration
type Configuration struct {
	DocsDir       string   `koanf:"docs_dir" validate:"required"`
	RulesFile     string   `koanf:"rules_file"`
	RepoRoot      string   `koanf:"repo_root" validate:"required"`
	Extensions    []string `koanf:"extensions" validate:"min=1,dive,required"`
	ExcludeDirs   []string `koanf:"exclude_dirs"`
	Include       []string `koanf:"include"`
	Exclude       []string `koanf:"exclude"`
	Workers       int      `koanf:"workers" validate:"min=0,max=256"`
	GitTimeout    int      `koanf:"git_timeout" validate:"min=1,max=600"` // seconds
	CommitPrefix  string   `koanf:"commit_prefix"`
	AutoCommit    bool     `koanf:"auto_commit"`
	DateFormat    string   `koanf:"date_format" validate:"required"`
	StateDir      string   `koanf:"state_dir" validate:"required"`
	MaxHistory    int      `koanf:"max_history" validate:"min=0"`
	WatchDebounce int      `koanf:"watch_debounce" validate:"min=0,max=60000"` // milliseconds
	LogLevel      string   `koanf:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile   string   `koanf:"metrics_file"`
}

// GitTimeoutDuration returns git_timeout as a duration.
func (c *Configuration) GitTimeoutDuration() time.Duration {
	return time.Duration(c.GitTimeout) * time.Second
}

// WatchDebounceDuration returns watch_debounce as a duration.
func (c *Configuration) WatchDebounceDuration() time.Duration {
	return time.Duration(c.WatchDebounce) * time.Millisecond
}

// Load loads configuration from global, local, and environment sources.
// Priority: Environment variables > Local config > Global config > Defaults.
// An empty localConfigPath selects LocalConfigPath(); an explicit path that
// does not exist is an error.
func Load(localConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range GetDefaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to apply default %s: %w", key, err)
		}
	}

	if globalPath, err := GlobalConfigPath(); err == nil {
		if err := loadFile(k, globalPath, false); err != nil {
			return nil, fmt.Errorf("failed to load global config: %w", err)
		}
	}

	explicit := localConfigPath != ""
	if !explicit {
		localConfigPath = LocalConfigPath()
	}
	if err := loadFile(k, localConfigPath, explicit); err != nil {
		return nil, fmt.Errorf("failed to load local config: %w", err)
	}

	// Override with environment variables (highest priority)
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.DocsDir = expandHomePath(cfg.DocsDir)
	cfg.RepoRoot = expandHomePath(cfg.RepoRoot)
	cfg.StateDir = expandHomePath(cfg.StateDir)
	cfg.RulesFile = expandHomePath(cfg.RulesFile)
	cfg.MetricsFile = expandHomePath(cfg.MetricsFile)

	return &cfg, nil
}

// loadFile merges the config file at path into k. Missing files are skipped
// unless required.
func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return err
	}
	if err := ValidateSyntax(path); err != nil {
		return err
	}

	parser := koanf.Parser(yaml.Parser())
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}
	return k.Load(file.Provider(path), parser)
}

// listKeys are the keys whose environment values are comma-separated lists.
var listKeys = map[string]bool{
	"extensions":   true,
	"exclude_dirs": true,
	"include":      true,
	"exclude":      true,
}

// envTransform converts environment variable names to config keys
// Example: AGENTQMS_DOCS_DIR -> docs_dir
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// envValue maps an environment variable to its config key and value. List
// keys split on commas: AGENTQMS_EXTENSIONS=.md,.markdown.
func envValue(name, value string) (string, interface{}) {
	key := envTransform(name)
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
