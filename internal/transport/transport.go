// Package transport executes commands on rollout targets. The Runner
// interface is the boundary contract: one synchronous command per call,
// captured output, explicit exit status. Everything above it treats remote
// commands as opaque shell invocations.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
)

// Result is the structured outcome of one command invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// OK reports whether the command exited zero.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Output returns combined output trimmed for error messages.
func (r Result) Output() string {
	return string(bytes.TrimSpace(append(append([]byte{}, r.Stdout...), r.Stderr...)))
}

// Runner executes commands against a target. A returned error means the
// transport itself failed (unreachable host, connection refused); a command
// that ran and exited non-zero is reported through Result, not error.
type Runner interface {
	Run(ctx context.Context, target fleet.Target, command string) (Result, error)
	// Copy uploads a local file to a path on the target.
	Copy(ctx context.Context, target fleet.Target, localPath, remotePath string) error
}

// ExecRunner runs commands through the local shell, over ssh for remote
// targets. Caller-supplied context carries the timeout; no call blocks
// indefinitely on its own.
type ExecRunner struct{}

// NewExecRunner creates the default runner.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

func (e *ExecRunner) Run(ctx context.Context, target fleet.Target, command string) (Result, error) {
	if target.SSHUser != "" && target.User != target.SSHUser {
		command = fmt.Sprintf("sudo -u %s sh -c %q", target.User, command)
	}

	var cmd *exec.Cmd
	if target.Local() {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	} else {
		cmd = exec.CommandContext(ctx, "ssh",
			"-o", "BatchMode=yes",
			fmt.Sprintf("%s@%s", target.SSHUser, target.Host),
			command)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("run %q on %s: %w", command, target, err)
	}
	return result, nil
}

func (e *ExecRunner) Copy(ctx context.Context, target fleet.Target, localPath, remotePath string) error {
	if target.Local() {
		// Local targets install straight from the repository directory.
		return nil
	}
	cmd := exec.CommandContext(ctx, "scp",
		"-o", "BatchMode=yes",
		localPath,
		fmt.Sprintf("%s@%s:%s", target.SSHUser, target.Host, remotePath))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("copy %s to %s: %w (%s)", localPath, target, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
