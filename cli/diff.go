package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <file> <old-version> [new-version]",
	Short: "Show a unified diff between versions",
	Long: `Render a unified diff between two recorded versions of a file, or
between a recorded version and the current on-disk contents when the
second version is omitted.

Examples:
  inveni diff notes.txt 5891b5b5...            # version vs current file
  inveni diff notes.txt 5891b5b5... 7d865e95...`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	newID := ""
	if len(args) == 3 {
		newID = args[2]
	}

	out, err := eng.DiffVersions(args[0], args[1], newID)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println("No differences.")
		return nil
	}
	fmt.Print(out)
	return nil
}
