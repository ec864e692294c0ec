package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var pruneCmd = &cobra.Command{
	Use:   "prune <file>",
	Short: "Run the retention sweep for a file",
	Long: `Evict versions beyond the retention quota (oldest first), reconcile
the catalog with the blob store, and age out expired rescue copies.
The sweep also runs automatically after every commit.

Examples:
  inveni prune notes.txt
  inveni prune notes.txt --quota 2`,
	Args: cobra.ExactArgs(1),
	RunE: runPrune,
}

var pruneQuota int

func init() {
	pruneCmd.Flags().IntVar(&pruneQuota, "quota", 0, "Retention quota (defaults to configured max_backups)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	quota := pruneQuota
	if quota == 0 {
		quota = eng.Settings().MaxBackups
	}

	evicted, err := eng.Prune(args[0], quota)
	if err != nil {
		return err
	}
	if evicted == 0 {
		fmt.Printf("Nothing to evict for %s (quota %d)\n", args[0], quota)
		return nil
	}
	fmt.Printf("%s %d version(s) of %s (quota %d)\n", colors.SuccessText("Evicted"), evicted, args[0], quota)
	return nil
}
