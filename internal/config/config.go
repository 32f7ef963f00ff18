// Package config handles configuration loading for taskmap.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"taskmap/internal/errs"
)

// Config holds all configuration for taskmap.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Git       GitConfig       `mapstructure:"git"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Execution ExecutionConfig `mapstructure:"execution"`
}

// AgentConfig holds settings for the external coding agent.
type AgentConfig struct {
	// Binary is the agent executable invoked per session.
	Binary string `mapstructure:"binary"`
	// Args are extra arguments passed before the prompt.
	Args []string `mapstructure:"args"`
	// PromptTemplate is the prompt template with {{var}} placeholders.
	PromptTemplate string `mapstructure:"prompt_template"`
}

// GitConfig holds branch and PR settings.
type GitConfig struct {
	// BranchPattern formats session branch names. Supported tokens:
	// {task_id} (first 8 chars) and {task_title} (slug, capped at 50).
	BranchPattern string `mapstructure:"branch_pattern"`
	// PRTitlePattern formats PR titles. Supported token: {task_title}.
	PRTitlePattern string `mapstructure:"pr_title_pattern"`
	// BaseBranch is the branch PRs target.
	BaseBranch string `mapstructure:"base_branch"`
	// AutoCreatePR creates a pull request after a successful session.
	AutoCreatePR bool `mapstructure:"auto_create_pr"`
}

// WorkspaceConfig holds workspace isolation settings.
type WorkspaceConfig struct {
	// Root is the directory session workspaces are created under.
	Root string `mapstructure:"root"`
}

// ExecutionConfig holds orchestration settings.
type ExecutionConfig struct {
	// MaxParallelSessions bounds concurrently running sessions.
	MaxParallelSessions int `mapstructure:"max_parallel_sessions"`
	// SessionTimeout bounds a single session's wall-clock time. A timed
	// out session is marked failed; the underlying process is not killed.
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	// RetryBackoffAttempts caps retries for network-ish failures.
	RetryBackoffAttempts int `mapstructure:"retry_backoff_attempts"`
	// RetryFixedAttempts caps retries for lock-contention failures.
	RetryFixedAttempts int `mapstructure:"retry_fixed_attempts"`
}

// DefaultPromptTemplate is used when no template is configured.
const DefaultPromptTemplate = `Work on the following task.

Title: {{task_title}}

{{task_description}}

Commit your work to the branch {{branch_name}} when done.`

// Default returns the built-in configuration without consulting any
// config file or environment variable.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Binary:         "claude",
			Args:           []string{"-p"},
			PromptTemplate: DefaultPromptTemplate,
		},
		Git: GitConfig{
			BranchPattern:  "task/{task_id}-{task_title}",
			PRTitlePattern: "{task_title}",
			BaseBranch:     "main",
		},
		Workspace: WorkspaceConfig{
			Root: defaultWorkspaceRoot(),
		},
		Execution: ExecutionConfig{
			MaxParallelSessions:  4,
			SessionTimeout:       30 * time.Minute,
			RetryBackoffAttempts: 3,
			RetryFixedAttempts:   10,
		},
	}
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (TASKMAP_*)
// 2. Project config (.taskmap.yaml in current directory or parent)
// 3. User config (~/.config/taskmap/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the orchestrator cannot
// work with.
func (c *Config) Validate() error {
	if c.Agent.Binary == "" {
		return &errs.ConfigurationError{Message: "agent.binary must be set"}
	}
	if c.Execution.MaxParallelSessions < 1 {
		return &errs.ConfigurationError{Message: "execution.max_parallel_sessions must be at least 1"}
	}
	if c.Execution.SessionTimeout <= 0 {
		return &errs.ConfigurationError{Message: "execution.session_timeout must be positive"}
	}
	if !strings.Contains(c.Git.BranchPattern, "{task_id}") {
		return &errs.ConfigurationError{Message: "git.branch_pattern must contain {task_id}"}
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.binary", "claude")
	v.SetDefault("agent.args", []string{"-p"})
	v.SetDefault("agent.prompt_template", DefaultPromptTemplate)
	v.SetDefault("git.branch_pattern", "task/{task_id}-{task_title}")
	v.SetDefault("git.pr_title_pattern", "{task_title}")
	v.SetDefault("git.base_branch", "main")
	v.SetDefault("git.auto_create_pr", false)
	v.SetDefault("workspace.root", defaultWorkspaceRoot())
	v.SetDefault("execution.max_parallel_sessions", 4)
	v.SetDefault("execution.session_timeout", 30*time.Minute)
	v.SetDefault("execution.retry_backoff_attempts", 3)
	v.SetDefault("execution.retry_fixed_attempts", 10)
}

func defaultWorkspaceRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "taskmap", "workspaces")
	}
	return filepath.Join(home, ".cache", "taskmap", "workspaces")
}

// getUserConfigDir returns the XDG config directory for taskmap.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskmap"
	}
	return filepath.Join(home, ".config", "taskmap")
}

// findProjectConfig walks up from the current directory looking for
// .taskmap.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".taskmap.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
