package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var statusCmd = &cobra.Command{
	Use:   "status <file>",
	Short: "Check whether a file differs from its recorded versions",
	Long: `Hash the file on disk and compare it against the recorded versions
of its path. Also reports how many snapshots exist in the backup area.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.DetectChange(args[0])
	if err != nil {
		return err
	}

	if res.Changed {
		fmt.Printf("%s %s\n", colors.Yellow("modified:"), args[0])
	} else {
		fmt.Printf("%s %s\n", colors.Green("unchanged:"), args[0])
	}
	fmt.Printf("  current: %s\n", colors.InfoText(shortHash(res.CurrentHash)))
	if res.LatestHash != "" {
		fmt.Printf("  latest:  %s\n", colors.InfoText(shortHash(res.LatestHash)))
	} else {
		fmt.Printf("  latest:  %s\n", colors.Gray("(no versions recorded)"))
	}

	count, err := eng.BackupCount(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("  backups: %d\n", count)
	return nil
}
