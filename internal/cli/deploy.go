package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/internal/rollout"
	"github.com/wheelhouse-project/wheelhouse/internal/transport"
	"github.com/wheelhouse-project/wheelhouse/pkg/logging"
)

var deployYes bool

var deployCmd = &cobra.Command{
	Use:   "deploy [selector]",
	Short: "Roll out the requirements list to matching targets",
	Long: `Roll out the requirements list to matching targets.

For every target matched by the selector ([user@]host[:path], several
joined with commas, omitted for all targets) the installed packages are
fetched, diffed against the requirements list, and the resulting plan is
presented for confirmation before installing, migrating and reloading.
Targets are processed one after another; a failure on one target never
stops the others.

Exit status: 0 if no target failed, 1 if any target failed, 2 if any
requirement was unresolvable in the repository.`,
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

		var confirm rollout.Confirmer = &rollout.PromptConfirmer{In: os.Stdin, Out: os.Stdout}
		if deployYes {
			confirm = rollout.AutoConfirmer(true)
		}

		// Interrupt aborts before the next confirmation; a target that is
		// already installing runs to its terminal state first.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		env := transport.NewEnv(transport.NewExecRunner())
		orch := rollout.New(repo, env, confirm, logging.WithFields(map[string]any{"command": "deploy"}))
		summary := orch.Run(ctx, targets, reqs)

		if jsonOutput {
			outputJSON(summary)
		} else {
			fmt.Print(summary.Format())
		}
		os.Exit(summary.ExitCode())
	},
}

func init() {
	deployCmd.Flags().BoolVar(&deployYes, "yes", false, "accept every action list without prompting")
	rootCmd.AddCommand(deployCmd)
}
