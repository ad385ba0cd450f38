package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()
		repo := requireRepo(cfg)

		var artifacts []model.Artifact
		for a := range repo.List() {
			artifacts = append(artifacts, a)
			if !jsonOutput {
				fmt.Printf("%-30s %-12s %s\n", a.Name, a.Version, a.CompatTag)
			}
		}
		if len(artifacts) == 0 && !jsonOutput {
			fmt.Println("Repository is empty.")
		}
		outputJSON(artifacts)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
