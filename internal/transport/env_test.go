package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/internal/transport"
	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// scriptRunner replies to commands from a canned table.
type scriptRunner struct {
	replies  map[string]transport.Result
	failWith error
	ran      []string
}

func (s *scriptRunner) Run(_ context.Context, _ fleet.Target, command string) (transport.Result, error) {
	s.ran = append(s.ran, command)
	if s.failWith != nil {
		return transport.Result{}, s.failWith
	}
	if res, ok := s.replies[command]; ok {
		return res, nil
	}
	return transport.Result{}, nil
}

func (s *scriptRunner) Copy(_ context.Context, _ fleet.Target, local, remote string) error {
	s.ran = append(s.ran, "copy "+local+" "+remote)
	return s.failWith
}

var testTarget = fleet.Target{Host: "h1", SSHUser: "alice", User: "alice", Path: "/srv/env"}

func TestParseFreeze(t *testing.T) {
	out := `
Django==4.2
typing_extensions==4.8.0
# comment
-e git+https://example.com/repo#egg=dev-pkg
requests
`
	installed := transport.ParseFreeze(out)
	assert.Equal(t, map[string]model.Version{
		"django":            "4.2",
		"typing-extensions": "4.8.0",
	}, installed)
}

func TestInstalled(t *testing.T) {
	runner := &scriptRunner{replies: map[string]transport.Result{
		"/srv/env/bin/pip freeze": {Stdout: []byte("foo==1.0\nbar==2.0\n")},
	}}
	env := transport.NewEnv(runner)

	installed, err := env.Installed(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Len(t, installed, 2)
	assert.Equal(t, model.Version("1.0"), installed["foo"])
}

func TestInstalledTransportFailure(t *testing.T) {
	runner := &scriptRunner{failWith: errors.New("connection refused")}
	env := transport.NewEnv(runner)

	_, err := env.Installed(context.Background(), testTarget)
	assert.True(t, errors.Is(err, errclass.ErrTransportFailure))
}

func TestInstalledNonZeroExit(t *testing.T) {
	runner := &scriptRunner{replies: map[string]transport.Result{
		"/srv/env/bin/pip freeze": {ExitCode: 1, Stderr: []byte("no such file")},
	}}
	env := transport.NewEnv(runner)

	_, err := env.Installed(context.Background(), testTarget)
	assert.True(t, errors.Is(err, errclass.ErrTransportFailure))
	assert.Contains(t, err.Error(), "no such file")
}

func TestPythonVersion(t *testing.T) {
	runner := &scriptRunner{replies: map[string]transport.Result{
		"/srv/env/bin/python --version": {Stdout: []byte("Python 3.12.1\n")},
	}}
	env := transport.NewEnv(runner)

	py, err := env.PythonVersion(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, repository.PyVersion{Major: 3, Minor: 12}, py)
}

func TestPythonVersionOnStderr(t *testing.T) {
	// Python 2 prints the version banner to stderr.
	runner := &scriptRunner{replies: map[string]transport.Result{
		"/srv/env/bin/python --version": {Stderr: []byte("Python 2.7.18\n")},
	}}
	env := transport.NewEnv(runner)

	py, err := env.PythonVersion(context.Background(), testTarget)
	require.NoError(t, err)
	assert.Equal(t, repository.PyVersion{Major: 2, Minor: 7}, py)
}

func TestUploadRemoteStagesWheel(t *testing.T) {
	runner := &scriptRunner{}
	env := transport.NewEnv(runner)

	remote, err := env.Upload(context.Background(), testTarget, "/repo/foo-1.0-py3.whl")
	require.NoError(t, err)
	assert.Equal(t, "/srv/env/wheels/foo-1.0-py3.whl", remote)
	assert.Contains(t, runner.ran, "mkdir -p /srv/env/wheels")
	assert.Contains(t, runner.ran, "copy /repo/foo-1.0-py3.whl /srv/env/wheels/foo-1.0-py3.whl")
}

func TestUploadStagesViaTmpWhenUsersDiffer(t *testing.T) {
	// scp connects as the ssh account, which cannot write the env owner's
	// wheels directory; the wheel goes through /tmp and a sudo-wrapped mv.
	runner := &scriptRunner{}
	env := transport.NewEnv(runner)
	target := fleet.Target{Host: "h1", SSHUser: "deploy", User: "app", Path: "/srv/env"}

	remote, err := env.Upload(context.Background(), target, "/repo/foo-1.0-py3.whl")
	require.NoError(t, err)
	assert.Equal(t, "/srv/env/wheels/foo-1.0-py3.whl", remote)
	assert.Contains(t, runner.ran, "copy /repo/foo-1.0-py3.whl /tmp/foo-1.0-py3.whl")
	assert.Contains(t, runner.ran, "mv /tmp/foo-1.0-py3.whl /srv/env/wheels/foo-1.0-py3.whl")
}

func TestUploadLocalSkipsCopy(t *testing.T) {
	runner := &scriptRunner{}
	env := transport.NewEnv(runner)
	local := fleet.Target{Host: "localhost", SSHUser: "me", User: "me", Path: "/srv/env"}

	got, err := env.Upload(context.Background(), local, "/repo/foo-1.0-py3.whl")
	require.NoError(t, err)
	assert.Equal(t, "/repo/foo-1.0-py3.whl", got)
	assert.Empty(t, runner.ran)
}

func TestInstallFailure(t *testing.T) {
	runner := &scriptRunner{replies: map[string]transport.Result{
		"/srv/env/bin/pip install --upgrade /srv/env/wheels/foo-1.0-py3.whl": {
			ExitCode: 2, Stderr: []byte("ERROR: invalid wheel"),
		},
	}}
	env := transport.NewEnv(runner)

	err := env.Install(context.Background(), testTarget, "/srv/env/wheels/foo-1.0-py3.whl")
	assert.True(t, errors.Is(err, errclass.ErrInstallFailure))
	assert.Contains(t, err.Error(), "invalid wheel")
}

func TestMigrateAndReload(t *testing.T) {
	target := testTarget
	target.MigrateCmd = "bin/django-admin migrate"
	target.ReloadCmd = "systemctl reload apache2"

	runner := &scriptRunner{replies: map[string]transport.Result{
		"bin/django-admin migrate": {ExitCode: 1, Stderr: []byte("boom")},
	}}
	env := transport.NewEnv(runner)

	err := env.Migrate(context.Background(), target)
	assert.True(t, errors.Is(err, errclass.ErrMigrationFailure))

	require.NoError(t, env.Reload(context.Background(), target))
}

func TestMigrateNoCommandIsNoop(t *testing.T) {
	runner := &scriptRunner{}
	env := transport.NewEnv(runner)

	require.NoError(t, env.Migrate(context.Background(), testTarget))
	assert.Empty(t, runner.ran)
}
