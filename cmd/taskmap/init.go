package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmap/internal/config"
	"taskmap/internal/state"
)

var (
	initForce          bool
	initWithConfig     bool
	initSkipAgentCheck bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a taskmap project",
	Long: `Initialize a directory for use with taskmap.

Creates the .taskmap directory, the project state database, and
optionally a .taskmap.yaml configuration template.

Examples:
  taskmap init                 # Initialize current directory
  taskmap init ./myproject     # Initialize specific directory
  taskmap init --with-config   # Also write a .taskmap.yaml template`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create a .taskmap.yaml template")
	initCmd.Flags().BoolVar(&initSkipAgentCheck, "skip-agent-check", false, "Skip agent binary availability check")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing taskmap in %s...\n\n", absPath)

	taskmapDir := filepath.Join(absPath, ".taskmap")
	if _, err := os.Stat(taskmapDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if !initSkipAgentCheck {
		if err := checkAgentBinary(cfg); err != nil {
			printStatus("✗", fmt.Sprintf("Agent binary %q not found", cfg.Agent.Binary), color.FgRed)
			return err
		}
		printStatus("✓", fmt.Sprintf("Agent binary %q found", cfg.Agent.Binary), color.FgGreen)
	}

	for _, sub := range []string{"logs", "signals"} {
		if err := os.MkdirAll(filepath.Join(taskmapDir, sub), 0755); err != nil {
			return fmt.Errorf("creating .taskmap/%s: %w", sub, err)
		}
	}
	printStatus("✓", "Created .taskmap directory structure", color.FgGreen)

	db, err := state.OpenProject(absPath)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	printStatus("✓", "Created state database", color.FgGreen)

	if initWithConfig {
		configPath := filepath.Join(absPath, ".taskmap.yaml")
		if err := config.WriteDefault(configPath); err != nil {
			printStatus("⚠", fmt.Sprintf("Skipped config template: %v", err), color.FgYellow)
		} else {
			printStatus("✓", "Created .taskmap.yaml template", color.FgGreen)
		}
	}

	fmt.Printf("\n%s taskmap initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  taskmap task add \"your first task\"")
	fmt.Println("  taskmap deps add <from> <to>")
	fmt.Println("  taskmap run")
	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
