package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags on recorded versions",
	Long: `Attach free-form labels to individual versions of a file. Tags are
trimmed and lowercased, and each version's tag set stays sorted and
deduplicated. An empty version argument refers to the newest version.

Examples:
  inveni tag add notes.txt 5891b5b5... reviewed
  inveni tag list notes.txt 5891b5b5...
  inveni tag remove notes.txt 5891b5b5... reviewed`,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <file> <version> <tag>",
	Short: "Attach a tag to a version",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.TagAdd(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("%s tag %q on %s\n", colors.SuccessText("Added"), strings.ToLower(strings.TrimSpace(args[2])), shortHash(args[1]))
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:     "remove <file> <version> <tag>",
	Aliases: []string{"rm"},
	Short:   "Detach a tag from a version",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.TagRemove(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("%s tag %q from %s\n", colors.SuccessText("Removed"), strings.ToLower(strings.TrimSpace(args[2])), shortHash(args[1]))
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:     "list <file> [version]",
	Aliases: []string{"ls"},
	Short:   "List the tags of a version",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		versionID := ""
		if len(args) == 2 {
			versionID = args[1]
		}
		tagList, err := eng.TagList(args[0], versionID)
		if err != nil {
			return err
		}
		if len(tagList) == 0 {
			fmt.Println("No tags.")
			return nil
		}
		for _, t := range tagList {
			fmt.Println(t)
		}
		return nil
	},
}
