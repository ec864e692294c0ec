package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var logCmd = &cobra.Command{
	Use:   "log <file>",
	Short: "Show the recorded versions of a file",
	Long: `Display the recorded versions of a file, newest first, with their
timestamps, authors, messages, and tags.

Examples:
  inveni log notes.txt
  inveni log notes.txt --oneline
  inveni log notes.txt --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

var (
	logOneline bool
	logLimit   int
)

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show one line per version")
	logCmd.Flags().IntVar(&logLimit, "limit", 0, "Limit number of versions to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	records, err := eng.ListVersions(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No versions recorded for %s\n", args[0])
		fmt.Println("Create the first one with: inveni commit <file> -m <message>")
		return nil
	}

	if logLimit > 0 && len(records) > logLimit {
		records = records[:logLimit]
	}

	if logOneline {
		for _, r := range records {
			msg := r.CommitMessage
			if len(msg) > 50 {
				msg = msg[:47] + "..."
			}
			fmt.Printf("%s %s %s\n", colors.InfoText(shortHash(r.ID)), colors.Gray(r.Timestamp), msg)
		}
		return nil
	}

	fmt.Printf("%s\n\n", colors.SectionHeader(fmt.Sprintf("Versions of %s (%d total):", args[0], len(records))))
	for _, r := range records {
		fmt.Printf("%s  %s UTC by %s\n", colors.InfoText(shortHash(r.ID)), r.Timestamp, r.Username)
		fmt.Printf("  \"%s\"\n", r.CommitMessage)
		fmt.Printf("  %s %d bytes, type %s\n", colors.Gray("size:"), r.Metadata.Size, r.Metadata.FileType)
		if tagList, err := eng.TagList(args[0], r.ID); err == nil && len(tagList) > 0 {
			fmt.Printf("  %s %s\n", colors.Gray("tags:"), strings.Join(tagList, ", "))
		}
		fmt.Println()
	}
	return nil
}
