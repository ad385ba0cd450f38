package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/internal/doctor"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check repository health",
	Long: `Check repository health.

Cross-checks the install log against the wheel files on disk and reports
orphan files, orphan records and malformed entries. The repository refuses
normal operation in these states; doctor shows the full picture so the
operator can repair it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()

		doc := doctor.NewDoctor(cfg.RepositoryPath())
		result, err := doc.Check()
		if err != nil {
			fmtErr("doctor: %v", err)
			os.Exit(exitUsage)
		}

		if jsonOutput {
			outputJSON(result)
		} else if len(result.Findings) == 0 {
			fmt.Println("Repository is healthy.")
		} else {
			fmt.Printf("Findings (%d):\n", len(result.Findings))
			for _, f := range result.Findings {
				fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Category, f.Description)
			}
		}

		if !result.Healthy {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
