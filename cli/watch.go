package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tigran0000/inveni/internal/colors"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Poll a file for changes",
	Long: `Register the file with the pull-mode watcher and poll it on an
interval, printing a line whenever the contents change. An idle poll
costs one stat; the file is only rehashed when its mtime moved.

Examples:
  inveni watch notes.txt
  inveni watch notes.txt --interval 5s
  inveni watch notes.txt --once`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchInterval time.Duration
	watchOnce     bool
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Poll interval")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Poll a single time and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	path := args[0]
	if err := eng.WatchFile(path); err != nil {
		return err
	}

	if watchOnce {
		changed, err := eng.PollWatch(path)
		if err != nil {
			return err
		}
		if changed {
			fmt.Printf("%s %s\n", colors.Yellow("changed:"), path)
		} else {
			fmt.Printf("%s %s\n", colors.Green("unchanged:"), path)
		}
		return nil
	}

	fmt.Printf("Watching %s every %s (Ctrl-C to stop)\n", path, watchInterval)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-interrupt:
			fmt.Println()
			return nil
		case <-ticker.C:
			changed, err := eng.PollWatch(path)
			if err != nil {
				return err
			}
			if changed {
				stamp := time.Now().Format("15:04:05")
				fmt.Printf("%s %s %s\n", colors.Gray(stamp), colors.Yellow("changed:"), path)
			}
		}
	}
}
