package commands

import (
	"cpkit/lib/project"
	"cpkit/lib/util/serviceutil"
	"fmt"

	"github.com/spf13/cobra"
)

var newOut *string
var newModeFlags modeFlags

func init() {
	newOut = newCmd.Flags().StringP("out", "o", ".", "Directory to create the contest project in.")
	newModeFlags = addModeFlags(newCmd)
	rootCmd.AddCommand(newCmd)
}

var newCmd = &cobra.Command{
	Use:   "new <contest id or url> [--out <dir>]",
	Short: "Creates a Go project for a contest with its samples as test fixtures.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bundle := scrape(cmd, args[0], newModeFlags)

		writer := project.Writer{
			Root:    *newOut,
			BaseUrl: current.config.BaseUrl,
		}
		result, err := writer.Write(cmd.Context(), bundle)
		if err != nil {
			serviceutil.Fatal("failed to write project", err)
		}

		printSummary(bundle)
		fmt.Printf(
			"Wrote %s: %d new file(s), %d kept, %d sample(s).\n",
			result.Dir, len(result.Created), len(result.Kept), result.Fixtures,
		)
		if len(result.Unchanged) > 0 {
			fmt.Printf("Kept the previous samples of %v, their pages could not be fetched.\n", result.Unchanged)
		}
	},
}
