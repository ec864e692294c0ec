// Package cli wires the versioning engine into the inveni command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/engine"
	"github.com/Tigran0000/inveni/internal/vererr"
)

var repoRoot string

var rootCmd = &cobra.Command{
	Use:   "inveni",
	Short: "Inveni is a per-file version and backup tool",
	Long: `Inveni records compressed, content-addressed snapshots of individual
files and restores any recorded version later. Snapshots carry a commit
message, author, and capture-time metadata; a per-file quota keeps the
backup area bounded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a repository",
	Long:  "Creates the settings file and backup directories in the repository root.",
	RunE:  runInit,
}

// Execute runs the command tree and exits with the engine's error-kind
// contract: 0 success, 2 validation, 3 not found, 4 storage, 1 other.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(vererr.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo", ".", "Repository root directory")

	rootCmd.AddCommand(initCmd)

	// Versioning commands
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(diffCmd)

	// Maintenance commands
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)

	// Tag management commands
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagListCmd)
}

// openEngine opens the engine over the configured repository root.
func openEngine() (*engine.Engine, error) {
	return engine.Open(repoRoot)
}

func runInit(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := os.MkdirAll(eng.BackupRoot(), 0755); err != nil {
		return vererr.IO("init", eng.BackupRoot(), err)
	}
	fmt.Printf("Initialized Inveni repository in %s\n", eng.Root())
	fmt.Printf("Backups will be stored under %s\n", eng.BackupRoot())
	return nil
}
