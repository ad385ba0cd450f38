package cli

import (
	"fmt"
	"os"

	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/pkg/color"
	"github.com/wheelhouse-project/wheelhouse/pkg/config"
	"github.com/wheelhouse-project/wheelhouse/pkg/logging"
)

// exitUsage is the exit status for configuration, parse and repository
// errors: bad input that aborts the run before any target is touched. It is
// distinct from the deploy outcomes (1 for failed targets, 2 for
// unresolvable requirements).
const exitUsage = 3

// requireConfig loads the fleet config from --config or by discovery, or
// exits with an error.
func requireConfig() *config.Config {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		var cwd string
		cwd, err = os.Getwd()
		if err != nil {
			fmtErr("cannot get current directory: %v", err)
			os.Exit(exitUsage)
		}
		cfg, err = config.Discover(cwd)
	}
	if err != nil {
		fmtErr("%v", err)
		os.Exit(exitUsage)
	}

	logging.SetGlobal(logging.NewLogger(logging.Level(cfg.Logging.Level)))
	return cfg
}

// requireRepo opens the configured wheel repository, or exits. An
// inconsistent repository aborts here; nothing proceeds against corruption.
func requireRepo(cfg *config.Config) *repository.Repository {
	repo, err := repository.Open(cfg.RepositoryPath())
	if err != nil {
		fmtErr("%v", err)
		os.Exit(exitUsage)
	}
	return repo
}

func fmtErr(format string, args ...any) {
	prefix := "wheelhouse: "
	if color.Enabled() {
		prefix = color.Error("wheelhouse:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
