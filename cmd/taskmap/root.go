package main

import (
	"fmt"
	"os"
	osexec "os/exec"

	"github.com/spf13/cobra"

	"taskmap/internal/config"
	"taskmap/internal/exec"
	"taskmap/internal/graph"
	"taskmap/internal/orchestrator"
	"taskmap/internal/session"
	"taskmap/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "taskmap",
	Short: "Dependency-aware task execution orchestrator",
	Long: `Taskmap tracks tasks and the dependencies between them, and executes
ready tasks by launching one isolated coding-agent session per task.

Each session gets its own git worktree and branch; sessions run in
parallel up to the configured limit, and a task never has more than
one execution in flight.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// checkAgentBinary verifies the configured agent executable is in PATH.
func checkAgentBinary(cfg *config.Config) error {
	if _, err := osexec.LookPath(cfg.Agent.Binary); err != nil {
		return fmt.Errorf("agent binary %q not found in PATH\n\n"+
			"Taskmap launches one %q session per task. Install it, or point\n"+
			"agent.binary at a different executable in .taskmap.yaml.",
			cfg.Agent.Binary, cfg.Agent.Binary)
	}
	return nil
}

// openStore opens and migrates the project database in the current
// directory.
func openStore() (*state.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	if _, err := os.Stat(state.ProjectDBPath(cwd)); os.IsNotExist(err) {
		return nil, fmt.Errorf("no taskmap project here; run 'taskmap init' first")
	}

	db, err := state.OpenProject(cwd)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// loadOrchestrator loads the configuration and wires the orchestrator
// over an already-open store.
func loadOrchestrator(db *state.DB) (*config.Config, *orchestrator.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	o, err := buildOrchestrator(db, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, o, nil
}

// buildOrchestrator wires the orchestrator over the project database,
// with the dependency graph rebuilt from persisted edges.
func buildOrchestrator(db *state.DB, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	deps, err := db.ListDependencies()
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	g, err := graph.Build(deps)
	if err != nil {
		return nil, fmt.Errorf("rebuild dependency graph: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	runner := session.NewRunner(db, exec.NewRunner(), cwd)

	o := orchestrator.New(db, runner, g, cfg)
	logger := orchestrator.NewDebugLoggerForProject(cwd)
	o.SetLogger(logger)
	runner.SetLogf(logger.Log)
	return o, nil
}
