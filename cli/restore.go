package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <file> [version]",
	Short: "Restore a recorded version of a file",
	Long: `Restore the file at its original path to a recorded version. The
current contents are preserved as a rescue copy in the backup area
before being overwritten. Without a version argument the newest
recorded version is restored.

Examples:
  inveni restore notes.txt
  inveni restore notes.txt 5891b5b522d5df086d0ff0b110fbd9d2...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	versionID := ""
	if len(args) == 2 {
		versionID = args[1]
	}

	if err := eng.Restore(args[0], versionID); err != nil {
		return err
	}

	if versionID == "" {
		fmt.Printf("%s %s to its latest recorded version\n", colors.SuccessText("Restored"), args[0])
	} else {
		fmt.Printf("%s %s to version %s\n", colors.SuccessText("Restored"), args[0], colors.InfoText(shortHash(versionID)))
	}
	return nil
}
