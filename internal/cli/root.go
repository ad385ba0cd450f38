package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/pkg/color"
)

var (
	jsonOutput bool
	noColor    bool
	configPath string

	rootCmd = &cobra.Command{
		Use:   "wheelhouse",
		Short: "wheelhouse - gated wheel rollout for virtualenv fleets",
		Long: `wheelhouse reconciles the installed packages of remote virtual
environments against a declared requirements list, using a local wheel
repository as the single source of installable packages. Deployments are
diffed, confirmed per target, and recorded in an append-only install log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			color.Init(noColor)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to wheelhouse.yaml (default: discovered upward from cwd)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitUsage)
	}
}

// outputJSON prints v as JSON if --json flag is set, otherwise does nothing.
func outputJSON(v any) error {
	if !jsonOutput {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
