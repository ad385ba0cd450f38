package transport

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
	"github.com/wheelhouse-project/wheelhouse/pkg/nameutil"
)

// Env adapts the Runner into the typed operations the rollout needs for one
// virtualenv: freeze, version probe, wheel upload, install, migrate, reload.
// All knowledge of pip's command forms and output formats lives here.
type Env struct {
	runner Runner
}

// NewEnv creates an Env over the given runner.
func NewEnv(runner Runner) *Env {
	return &Env{runner: runner}
}

func pipPath(t fleet.Target) string    { return path.Join(t.Path, "bin", "pip") }
func pythonPath(t fleet.Target) string { return path.Join(t.Path, "bin", "python") }

// WheelsDir is the per-environment directory wheels are uploaded to.
func WheelsDir(t fleet.Target) string { return path.Join(t.Path, "wheels") }

// Installed fetches the installed package set via `pip freeze`. The snapshot
// is never cached; every rollout run re-fetches it.
func (e *Env) Installed(ctx context.Context, t fleet.Target) (map[string]model.Version, error) {
	res, err := e.runner.Run(ctx, t, pipPath(t)+" freeze")
	if err != nil {
		return nil, errclass.ErrTransportFailure.WithMessagef("%s: %v", t, err)
	}
	if !res.OK() {
		return nil, errclass.ErrTransportFailure.WithMessagef(
			"%s: pip freeze exited %d: %s", t, res.ExitCode, res.Output())
	}
	return ParseFreeze(string(res.Stdout)), nil
}

// ParseFreeze parses `pip freeze` output into a name -> version map.
// Editable installs and option lines are not versioned packages and are
// ignored; so is anything without an exact `==` pin.
func ParseFreeze(out string) map[string]model.Version {
	installed := make(map[string]model.Version)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, version, found := strings.Cut(line, "==")
		if !found || name == "" || version == "" {
			continue
		}
		installed[nameutil.Normalize(name)] = model.Version(version)
	}
	return installed
}

// PythonVersion probes the environment's interpreter version for
// compatibility-tag selection. Older interpreters print the version on
// stderr, so both streams are considered.
func (e *Env) PythonVersion(ctx context.Context, t fleet.Target) (repository.PyVersion, error) {
	res, err := e.runner.Run(ctx, t, pythonPath(t)+" --version")
	if err != nil {
		return repository.PyVersion{}, errclass.ErrTransportFailure.WithMessagef("%s: %v", t, err)
	}
	if !res.OK() {
		return repository.PyVersion{}, errclass.ErrTransportFailure.WithMessagef(
			"%s: python --version exited %d: %s", t, res.ExitCode, res.Output())
	}
	py, err := parsePythonVersion(res.Output())
	if err != nil {
		return repository.PyVersion{}, errclass.ErrTransportFailure.WithMessagef("%s: %v", t, err)
	}
	return py, nil
}

func parsePythonVersion(out string) (repository.PyVersion, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return repository.PyVersion{}, fmt.Errorf("unexpected python --version output %q", out)
	}
	var py repository.PyVersion
	if _, err := fmt.Sscanf(fields[1], "%d.%d", &py.Major, &py.Minor); err != nil {
		return repository.PyVersion{}, fmt.Errorf("unexpected python version %q", fields[1])
	}
	return py, nil
}

// Upload stages a wheel file in the environment's wheels directory and
// returns the path to install from. Local targets install straight from the
// repository. When the connecting account is not the environment owner, scp
// cannot write the owner's wheels directory, so the wheel lands in /tmp
// first and is moved into place as the owner.
func (e *Env) Upload(ctx context.Context, t fleet.Target, localWheel string) (string, error) {
	if t.Local() {
		return localWheel, nil
	}
	res, err := e.runner.Run(ctx, t, "mkdir -p "+WheelsDir(t))
	if err != nil {
		return "", errclass.ErrTransportFailure.WithMessagef("%s: %v", t, err)
	}
	if !res.OK() {
		return "", errclass.ErrTransportFailure.WithMessagef(
			"%s: cannot create %s: %s", t, WheelsDir(t), res.Output())
	}

	remote := path.Join(WheelsDir(t), path.Base(localWheel))
	staged := remote
	if t.SSHUser != "" && t.SSHUser != t.User {
		staged = path.Join("/tmp", path.Base(localWheel))
	}
	if err := e.runner.Copy(ctx, t, localWheel, staged); err != nil {
		return "", errclass.ErrTransportFailure.WithMessagef("%s: %v", t, err)
	}
	if staged != remote {
		res, err := e.runner.Run(ctx, t, fmt.Sprintf("mv %s %s", staged, remote))
		if err != nil {
			return "", errclass.ErrTransportFailure.WithMessagef("%s: %v", t, err)
		}
		if !res.OK() {
			return "", errclass.ErrTransportFailure.WithMessagef(
				"%s: cannot move %s into place: %s", t, path.Base(localWheel), res.Output())
		}
	}
	return remote, nil
}

// Install runs pip install --upgrade for one staged wheel.
func (e *Env) Install(ctx context.Context, t fleet.Target, wheelPath string) error {
	res, err := e.runner.Run(ctx, t, fmt.Sprintf("%s install --upgrade %s", pipPath(t), wheelPath))
	if err != nil {
		return errclass.ErrInstallFailure.WithMessagef("%s: %v", t, err)
	}
	if !res.OK() {
		return errclass.ErrInstallFailure.WithMessagef(
			"%s: pip install %s exited %d: %s", t, path.Base(wheelPath), res.ExitCode, res.Output())
	}
	return nil
}

// Migrate runs the target's configured migration command.
func (e *Env) Migrate(ctx context.Context, t fleet.Target) error {
	if t.MigrateCmd == "" {
		return nil
	}
	res, err := e.runner.Run(ctx, t, t.MigrateCmd)
	if err != nil {
		return errclass.ErrMigrationFailure.WithMessagef("%s: %v", t, err)
	}
	if !res.OK() {
		return errclass.ErrMigrationFailure.WithMessagef(
			"%s: %q exited %d: %s", t, t.MigrateCmd, res.ExitCode, res.Output())
	}
	return nil
}

// Reload runs the target's configured service reload command.
func (e *Env) Reload(ctx context.Context, t fleet.Target) error {
	if t.ReloadCmd == "" {
		return nil
	}
	res, err := e.runner.Run(ctx, t, t.ReloadCmd)
	if err != nil {
		return errclass.ErrReloadFailure.WithMessagef("%s: %v", t, err)
	}
	if !res.OK() {
		return errclass.ErrReloadFailure.WithMessagef(
			"%s: %q exited %d: %s", t, t.ReloadCmd, res.ExitCode, res.Output())
	}
	return nil
}
