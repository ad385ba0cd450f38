package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
)

var targetsCmd = &cobra.Command{
	Use:   "targets [selector]",
	Short: "List configured targets, optionally filtered by a selector",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		selector := ""
		if len(args) > 0 {
			selector = args[0]
		}

		cfg := requireConfig()
		matched, err := fleet.Resolve(selector, fleet.FromConfig(cfg))
		if err != nil {
			fmtErr("%v", err)
			os.Exit(exitUsage)
		}

		if !jsonOutput {
			for _, t := range matched {
				fmt.Println(t.ID())
			}
		}
		outputJSON(matched)
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
