package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/pkg/logging"
)

var addCmd = &cobra.Command{
	Use:   "add <wheel>...",
	Short: "Register wheel files into the repository",
	Long: `Register wheel files into the repository.

Each file is parsed as name-version-tag.whl, copied into the repository
directory, and recorded in the install log. Registering the same
(name, version, tag) twice is an error; the repository is append-only.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()
		repo := requireRepo(cfg)

		var added []any
		for _, path := range args {
			artifact, err := repo.Register(path)
			if err != nil {
				fmtErr("%s: %v", path, err)
				os.Exit(exitUsage)
			}
			logging.Info("registered artifact", map[string]any{
				"name":    artifact.Name,
				"version": string(artifact.Version),
				"tag":     artifact.CompatTag,
			})
			added = append(added, artifact)
			if !jsonOutput {
				fmt.Printf("Added %s\n", artifact)
			}
		}
		outputJSON(added)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
