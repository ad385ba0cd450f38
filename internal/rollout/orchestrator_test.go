package rollout_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/internal/rollout"
	"github.com/wheelhouse-project/wheelhouse/internal/transport"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// fakeRunner simulates per-host command execution for orchestrator tests.
type fakeRunner struct {
	freeze       map[string]string // host -> pip freeze stdout
	unreachable  map[string]bool   // host -> transport error on every command
	failInstall  map[string]bool
	failMigrate  map[string]bool
	failReload   map[string]bool
	ran          []string // "host cmd" in execution order
}

func (f *fakeRunner) Run(_ context.Context, t fleet.Target, command string) (transport.Result, error) {
	f.ran = append(f.ran, t.Host+" "+command)
	if f.unreachable[t.Host] {
		return transport.Result{}, errors.New("connection refused")
	}
	switch {
	case strings.HasSuffix(command, "python --version"):
		return transport.Result{Stdout: []byte("Python 3.12.0\n")}, nil
	case strings.HasSuffix(command, "pip freeze"):
		return transport.Result{Stdout: []byte(f.freeze[t.Host])}, nil
	case strings.Contains(command, "pip install"):
		if f.failInstall[t.Host] {
			return transport.Result{ExitCode: 1, Stderr: []byte("install blew up")}, nil
		}
		return transport.Result{}, nil
	case command == "migrate-cmd":
		if f.failMigrate[t.Host] {
			return transport.Result{ExitCode: 1, Stderr: []byte("migration blew up")}, nil
		}
		return transport.Result{}, nil
	case command == "reload-cmd":
		if f.failReload[t.Host] {
			return transport.Result{ExitCode: 1, Stderr: []byte("reload blew up")}, nil
		}
		return transport.Result{}, nil
	}
	return transport.Result{}, nil
}

func (f *fakeRunner) Copy(_ context.Context, t fleet.Target, local, remote string) error {
	f.ran = append(f.ran, t.Host+" copy "+filepath.Base(local))
	if f.unreachable[t.Host] {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeRunner) commandsFor(host string) []string {
	var out []string
	for _, r := range f.ran {
		if strings.HasPrefix(r, host+" ") {
			out = append(out, strings.TrimPrefix(r, host+" "))
		}
	}
	return out
}

// recordingConfirmer wraps a decision and records how often it was asked.
type recordingConfirmer struct {
	accept bool
	asked  int
}

func (c *recordingConfirmer) Confirm(fleet.Target, []model.Action) (bool, error) {
	c.asked++
	return c.accept, nil
}

func newTestRepo(t *testing.T, wheels ...string) *repository.Repository {
	t.Helper()
	repo, err := repository.Init(t.TempDir())
	require.NoError(t, err)
	src := t.TempDir()
	for _, w := range wheels {
		path := filepath.Join(src, w)
		require.NoError(t, os.WriteFile(path, []byte("wheel"), 0644))
		_, err := repo.Register(path)
		require.NoError(t, err)
	}
	return repo
}

func parseReqs(t *testing.T, lines string) []requirements.Requirement {
	t.Helper()
	reqs, err := requirements.Parse(strings.NewReader(lines))
	require.NoError(t, err)
	return reqs
}

func target(host string) fleet.Target {
	return fleet.Target{
		Host: host, SSHUser: "admin", User: "admin", Path: "/srv/env",
		MigrateCmd: "migrate-cmd", ReloadCmd: "reload-cmd",
	}
}

func TestRunHappyPath(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{freeze: map[string]string{"h1": "foo==1.0\n"}}
	confirm := &recordingConfirmer{accept: true}
	orch := rollout.New(repo, transport.NewEnv(runner), confirm, nil)

	summary := orch.Run(context.Background(), []fleet.Target{target("h1")}, parseReqs(t, "foo==2.0\n"))

	assert.Equal(t, 1, summary.Done)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 1, confirm.asked)
	assert.Equal(t, rollout.ExitOK, summary.ExitCode())

	cmds := runner.commandsFor("h1")
	joined := strings.Join(cmds, "\n")
	assert.Contains(t, joined, "pip install --upgrade /srv/env/wheels/foo-2.0-py3.whl")
	assert.Contains(t, joined, "migrate-cmd")
	assert.Contains(t, joined, "reload-cmd")
	// Install happens before migrate, migrate before reload.
	assert.Less(t, strings.Index(joined, "pip install"), strings.Index(joined, "migrate-cmd"))
	assert.Less(t, strings.Index(joined, "migrate-cmd"), strings.Index(joined, "reload-cmd"))

	// The install was recorded in the repository's audit log.
	records, err := repo.History()
	require.NoError(t, err)
	last := records[len(records)-1]
	assert.Equal(t, model.RecordInstall, last.Kind)
	assert.Equal(t, "admin@h1:/srv/env", last.Target)
}

func TestRunAllSkipFastPath(t *testing.T) {
	repo := newTestRepo(t, "foo-1.0-py3.whl")
	runner := &fakeRunner{freeze: map[string]string{"h1": "foo==1.0\n"}}
	confirm := &recordingConfirmer{accept: true}
	orch := rollout.New(repo, transport.NewEnv(runner), confirm, nil)

	summary := orch.Run(context.Background(), []fleet.Target{target("h1")}, parseReqs(t, "foo==1.0\n"))

	assert.Equal(t, 1, summary.Done)
	// No-op deployments never reach confirmation.
	assert.Zero(t, confirm.asked)
	// Nor do they migrate or reload.
	assert.NotContains(t, strings.Join(runner.commandsFor("h1"), "\n"), "migrate-cmd")
}

func TestRunTransportFailureIsolation(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{
		freeze:      map[string]string{"h1": "foo==1.0\n", "h3": "foo==1.0\n"},
		unreachable: map[string]bool{"h2": true},
	}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(true), nil)

	targets := []fleet.Target{target("h1"), target("h2"), target("h3")}
	summary := orch.Run(context.Background(), targets, parseReqs(t, "foo==2.0\n"))

	assert.Equal(t, 2, summary.Done)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, model.StateFailed, summary.Outcomes[1].State)
	assert.Contains(t, summary.Outcomes[1].Cause, "connection refused")
	// The failed target did not stop the third one.
	assert.Equal(t, model.StateDone, summary.Outcomes[2].State)
	assert.Equal(t, rollout.ExitFailed, summary.ExitCode())
}

func TestRunDeclinedCountedSeparately(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{freeze: map[string]string{"h1": ""}}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(false), nil)

	summary := orch.Run(context.Background(), []fleet.Target{target("h1")}, parseReqs(t, "foo\n"))

	assert.Equal(t, 1, summary.Declined)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, rollout.ExitOK, summary.ExitCode())
	// Declining executes nothing.
	assert.NotContains(t, strings.Join(runner.commandsFor("h1"), "\n"), "pip install")
}

func TestRunInstallFailureAbortsTarget(t *testing.T) {
	repo := newTestRepo(t, "a-1.0-py3.whl", "b-1.0-py3.whl")
	runner := &fakeRunner{
		freeze:      map[string]string{"h1": ""},
		failInstall: map[string]bool{"h1": true},
	}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(true), nil)

	summary := orch.Run(context.Background(), []fleet.Target{target("h1")}, parseReqs(t, "a==1.0\nb==1.0\n"))

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Outcomes[0].Cause, "install blew up")

	cmds := strings.Join(runner.commandsFor("h1"), "\n")
	// The first failed install aborts the rest: no second install attempt,
	// no migration, no reload on a target with incomplete package state.
	assert.Equal(t, 1, strings.Count(cmds, "pip install"))
	assert.NotContains(t, cmds, "migrate-cmd")
	assert.NotContains(t, cmds, "reload-cmd")
}

func TestRunMigrationFailureDoesNotRollBack(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{
		freeze:      map[string]string{"h1": "foo==1.0\n"},
		failMigrate: map[string]bool{"h1": true},
	}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(true), nil)

	summary := orch.Run(context.Background(), []fleet.Target{target("h1")}, parseReqs(t, "foo==2.0\n"))

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Outcomes[0].Cause, "migration blew up")

	cmds := strings.Join(runner.commandsFor("h1"), "\n")
	// The install ran and is not undone; reload is not attempted.
	assert.Contains(t, cmds, "pip install")
	assert.NotContains(t, cmds, "reload-cmd")
}

func TestRunUnresolvableFailsTarget(t *testing.T) {
	repo := newTestRepo(t) // empty repository
	runner := &fakeRunner{freeze: map[string]string{"h1": ""}}
	confirm := &recordingConfirmer{accept: true}
	orch := rollout.New(repo, transport.NewEnv(runner), confirm, nil)

	summary := orch.Run(context.Background(), []fleet.Target{target("h1")}, parseReqs(t, "ghost==1.0\n"))

	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.Unresolvable)
	assert.Contains(t, summary.Outcomes[0].Cause, "ghost")
	// An unresolvable plan is never presented for confirmation.
	assert.Zero(t, confirm.asked)
	assert.Equal(t, rollout.ExitUnresolvable, summary.ExitCode())
}

func TestRunReloadOncePerHost(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{freeze: map[string]string{"h1": "foo==1.0\n"}}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(true), nil)

	a := target("h1")
	a.ReloadOnce = true
	b := a
	b.Path = "/srv/other"

	summary := orch.Run(context.Background(), []fleet.Target{a, b}, parseReqs(t, "foo==2.0\n"))

	assert.Equal(t, 2, summary.Done)
	joined := strings.Join(runner.ran, "\n")
	assert.Equal(t, 1, strings.Count(joined, "reload-cmd"))
	// The single reload happens after the host's last environment was
	// updated, so the final install's code is active.
	assert.Greater(t, strings.Index(joined, "reload-cmd"), strings.LastIndex(joined, "pip install"))
}

func TestRunReloadOnceFailureFailsUpdatedTargets(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{
		freeze:     map[string]string{"h1": "foo==1.0\n"},
		failReload: map[string]bool{"h1": true},
	}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(true), nil)

	a := target("h1")
	a.ReloadOnce = true
	b := a
	b.Path = "/srv/other"

	summary := orch.Run(context.Background(), []fleet.Target{a, b}, parseReqs(t, "foo==2.0\n"))

	assert.Zero(t, summary.Done)
	assert.Equal(t, 2, summary.Failed)
	for _, o := range summary.Outcomes {
		assert.Contains(t, o.Cause, "reload blew up")
	}
}

// ctxRunner refuses any command once its context is cancelled, the way
// exec.CommandContext kills an in-flight process.
type ctxRunner struct {
	fakeRunner
}

func (c *ctxRunner) Run(ctx context.Context, t fleet.Target, command string) (transport.Result, error) {
	if ctx.Err() != nil {
		return transport.Result{}, ctx.Err()
	}
	return c.fakeRunner.Run(ctx, t, command)
}

func (c *ctxRunner) Copy(ctx context.Context, t fleet.Target, local, remote string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return c.fakeRunner.Copy(ctx, t, local, remote)
}

// cancellingConfirmer accepts and immediately cancels the run, like an
// operator interrupting right after answering yes.
type cancellingConfirmer struct {
	cancel context.CancelFunc
}

func (c *cancellingConfirmer) Confirm(fleet.Target, []model.Action) (bool, error) {
	c.cancel()
	return true, nil
}

func TestRunConfirmedTargetRunsToCompletion(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &ctxRunner{fakeRunner{
		freeze: map[string]string{"h1": "foo==1.0\n", "h2": "foo==1.0\n"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orch := rollout.New(repo, transport.NewEnv(runner), &cancellingConfirmer{cancel: cancel}, nil)

	summary := orch.Run(ctx, []fleet.Target{target("h1"), target("h2")}, parseReqs(t, "foo==2.0\n"))

	// The confirmed target finishes install, migrate and reload despite the
	// interrupt; the next target stops at its pre-confirmation checkpoint.
	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, model.StateDone, summary.Outcomes[0].State)
	assert.Equal(t, model.StateDeclined, summary.Outcomes[1].State)

	cmds := strings.Join(runner.commandsFor("h1"), "\n")
	assert.Contains(t, cmds, "pip install")
	assert.Contains(t, cmds, "migrate-cmd")
	assert.Contains(t, cmds, "reload-cmd")
	assert.Empty(t, runner.commandsFor("h2"))
}

func TestRunCancelledBeforeConfirmationDeclines(t *testing.T) {
	repo := newTestRepo(t, "foo-2.0-py3.whl")
	runner := &fakeRunner{freeze: map[string]string{"h1": ""}}
	orch := rollout.New(repo, transport.NewEnv(runner), rollout.AutoConfirmer(true), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := orch.Run(ctx, []fleet.Target{target("h1"), target("h2")}, parseReqs(t, "foo\n"))

	assert.Equal(t, 2, summary.Declined)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, runner.ran)
}
