package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a wheelhouse configuration and an empty wheel repository",
	Long: `Create a wheelhouse configuration and an empty wheel repository.

Writes a wheelhouse.yaml with defaults into the given directory (default:
current directory) and initializes the wheel repository it points at.
Edit the hosts section afterwards to describe your fleet.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		cfgPath := filepath.Join(dir, config.FileName)
		if _, err := os.Stat(cfgPath); err == nil {
			fmtErr("%s already exists", cfgPath)
			os.Exit(exitUsage)
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			fmtErr("create %s: %v", dir, err)
			os.Exit(exitUsage)
		}
		cfg := config.Default()
		if err := config.Save(cfgPath, cfg); err != nil {
			fmtErr("%v", err)
			os.Exit(exitUsage)
		}
		if _, err := repository.Init(filepath.Join(dir, cfg.Repository)); err != nil {
			fmtErr("%v", err)
			os.Exit(exitUsage)
		}

		fmt.Printf("Initialized wheelhouse in %s\n", dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
