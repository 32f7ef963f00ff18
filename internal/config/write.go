package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for writing default files.
type fileConfig struct {
	Agent struct {
		Binary         string   `yaml:"binary"`
		Args           []string `yaml:"args"`
		PromptTemplate string   `yaml:"prompt_template"`
	} `yaml:"agent"`
	Git struct {
		BranchPattern  string `yaml:"branch_pattern"`
		PRTitlePattern string `yaml:"pr_title_pattern"`
		BaseBranch     string `yaml:"base_branch"`
		AutoCreatePR   bool   `yaml:"auto_create_pr"`
	} `yaml:"git"`
	Workspace struct {
		Root string `yaml:"root"`
	} `yaml:"workspace"`
	Execution struct {
		MaxParallelSessions  int    `yaml:"max_parallel_sessions"`
		SessionTimeout       string `yaml:"session_timeout"`
		RetryBackoffAttempts int    `yaml:"retry_backoff_attempts"`
		RetryFixedAttempts   int    `yaml:"retry_fixed_attempts"`
	} `yaml:"execution"`
}

// WriteDefault writes a default config file to the given path, creating
// parent directories as needed. Fails if the file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var fc fileConfig
	fc.Agent.Binary = "claude"
	fc.Agent.Args = []string{"-p"}
	fc.Agent.PromptTemplate = DefaultPromptTemplate
	fc.Git.BranchPattern = "task/{task_id}-{task_title}"
	fc.Git.PRTitlePattern = "{task_title}"
	fc.Git.BaseBranch = "main"
	fc.Git.AutoCreatePR = false
	fc.Workspace.Root = defaultWorkspaceRoot()
	fc.Execution.MaxParallelSessions = 4
	fc.Execution.SessionTimeout = (30 * time.Minute).String()
	fc.Execution.RetryBackoffAttempts = 3
	fc.Execution.RetryFixedAttempts = 10

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
