package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/internal/differ"
	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/internal/rollout"
	"github.com/wheelhouse-project/wheelhouse/internal/transport"
	"github.com/wheelhouse-project/wheelhouse/pkg/color"
)

var diffCmd = &cobra.Command{
	Use:   "diff [selector]",
	Short: "Show what deploy would do, without changing anything",
	Long: `Show what deploy would do, without changing anything.

Fetches the installed packages of every matching target and prints the
action list the differ would execute. No confirmation, no installation.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		selector := ""
		if len(args) > 0 {
			selector = args[0]
		}

		cfg := requireConfig()
		reqs, err := requirements.ParseFile(cfg.RequirementsPath())
		if err != nil {
			fmtErr("%v", err)
			os.Exit(exitUsage)
		}
		repo := requireRepo(cfg)

		targets, err := fleet.Resolve(selector, fleet.FromConfig(cfg))
		if err != nil {
			fmtErr("%v", err)
			os.Exit(exitUsage)
		}

		env := transport.NewEnv(transport.NewExecRunner())
		type targetDiff struct {
			Target  string `json:"target"`
			Error   string `json:"error,omitempty"`
			Actions any    `json:"actions,omitempty"`
		}
		var diffs []targetDiff

		for _, target := range targets {
			py, err := env.PythonVersion(cmd.Context(), target)
			if err != nil {
				diffs = append(diffs, targetDiff{Target: target.ID(), Error: err.Error()})
				if !jsonOutput {
					fmt.Printf("\n%s\n  %s\n", color.Info(target.ID()), color.Error(err.Error()))
				}
				continue
			}
			state, err := env.Installed(cmd.Context(), target)
			if err != nil {
				diffs = append(diffs, targetDiff{Target: target.ID(), Error: err.Error()})
				if !jsonOutput {
					fmt.Printf("\n%s\n  %s\n", color.Info(target.ID()), color.Error(err.Error()))
				}
				continue
			}

			actions := differ.Diff(reqs, state, repo.ResolverFor(py))
			diffs = append(diffs, targetDiff{Target: target.ID(), Actions: actions})
			if !jsonOutput {
				fmt.Printf("\n%s\n%s", color.Info(target.ID()), rollout.FormatActions(actions))
			}
		}

		outputJSON(diffs)
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
