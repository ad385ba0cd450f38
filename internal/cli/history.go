package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the install log",
	Long: `Show the install log.

Prints artifact registrations and per-target installs in append order,
newest last. The log is append-only and human-inspectable; this command
is a formatted view of it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := requireConfig()
		repo := requireRepo(cfg)

		records, err := repo.History()
		if err != nil {
			fmtErr("%v", err)
			os.Exit(exitUsage)
		}
		if historyLimit > 0 && len(records) > historyLimit {
			records = records[len(records)-historyLimit:]
		}

		if !jsonOutput {
			for _, rec := range records {
				stamp := rec.Timestamp.Format(time.RFC3339)
				switch rec.Kind {
				case model.RecordRelease:
					fmt.Printf("%s  release  %s==%s (%s)\n", stamp, rec.Name, rec.Version, rec.CompatTag)
				case model.RecordInstall:
					fmt.Printf("%s  install  %s==%s -> %s\n", stamp, rec.Name, rec.Version, rec.Target)
				}
			}
		}
		outputJSON(records)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "show only the newest N records")
	rootCmd.AddCommand(historyCmd)
}
