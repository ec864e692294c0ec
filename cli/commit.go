package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var commitCmd = &cobra.Command{
	Use:   "commit <file>",
	Short: "Record a snapshot of a file",
	Long: `Record a new version of the file, keyed by the SHA-256 of its
contents. If the content matches an already recorded version no new
entry is created.

Examples:
  inveni commit notes.txt -m "first draft"
  inveni commit notes.txt -m "rework intro" --author alice
  inveni commit notes.txt -m "tidy" --force`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

var (
	commitMessage string
	commitAuthor  string
	commitForce   bool
)

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message (required)")
	commitCmd.Flags().StringVar(&commitAuthor, "author", "", "Author name (defaults to configured username)")
	commitCmd.Flags().BoolVar(&commitForce, "force", false, "Re-run the retention sweep even when unchanged")
}

func runCommit(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Commit(args[0], commitMessage, commitAuthor, commitForce)
	if err != nil {
		return err
	}

	if !res.Created {
		fmt.Printf("%s %s\n", colors.WarningText("No changes detected for"), args[0])
		fmt.Printf("Current version is %s\n", colors.InfoText(shortHash(res.VersionID)))
		return nil
	}

	fmt.Printf("%s %s\n", colors.SuccessText("Committed"), args[0])
	fmt.Printf("  version:  %s\n", colors.InfoText(shortHash(res.VersionID)))
	if res.PreviousVersionID != "" {
		fmt.Printf("  previous: %s\n", colors.Gray(shortHash(res.PreviousVersionID)))
	}
	return nil
}

// shortHash abbreviates a version id for display.
func shortHash(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
