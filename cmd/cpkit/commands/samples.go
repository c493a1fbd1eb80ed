package commands

import (
	"cpkit/lib/util/serviceutil"
	"encoding/json"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var samplesJson *bool
var samplesModeFlags modeFlags

func init() {
	samplesJson = samplesCmd.Flags().Bool("json", false, "Print the bundle as JSON instead of a table.")
	samplesModeFlags = addModeFlags(samplesCmd)
	rootCmd.AddCommand(samplesCmd)
}

var samplesCmd = &cobra.Command{
	Use:   "samples <contest id or url> [--json]",
	Short: "Prints the samples of every task of a contest.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bundle := scrape(cmd, args[0], samplesModeFlags)

		if *samplesJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			err := encoder.Encode(bundle)
			if err != nil {
				serviceutil.Fatal("failed to encode bundle", err)
			}
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Task", "#", "Input", "Output"})
		for _, task := range bundle.Tasks {
			if task.Flagged() {
				t.AppendRow(table.Row{task.Task.Label, "-", "", ""})
				continue
			}
			for _, sample := range task.Samples {
				t.AppendRow(table.Row{
					task.Task.Label,
					sample.Index,
					strings.TrimSuffix(sample.Input, "\n"),
					strings.TrimSuffix(sample.Output, "\n"),
				})
			}
			t.AppendSeparator()
		}
		t.Render()
	},
}
