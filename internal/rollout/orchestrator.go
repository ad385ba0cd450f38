// Package rollout drives the gated deployment of wheel artifacts to
// resolved targets: fetch installed state, diff, confirm, install, migrate,
// reload. Each target runs its state machine to a terminal state in
// isolation; one target's failure never prevents processing the rest.
package rollout

import (
	"context"
	"fmt"
	"strings"

	"github.com/wheelhouse-project/wheelhouse/internal/differ"
	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/internal/transport"
	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/logging"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
	"github.com/wheelhouse-project/wheelhouse/pkg/uuidutil"
)

// Orchestrator sequences a rollout run over a set of targets.
type Orchestrator struct {
	repo    *repository.Repository
	env     *transport.Env
	confirm Confirmer
	logger  *logging.Logger
}

// New creates an Orchestrator.
func New(repo *repository.Repository, env *transport.Env, confirm Confirmer, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewLogger(logging.LevelInfo)
	}
	return &Orchestrator{repo: repo, env: env, confirm: confirm, logger: logger}
}

// Run processes targets sequentially. The confirmation step is inherently
// serial and interactive; nothing here parallelizes it. Cancelling ctx stops
// the run before the next confirmation, never in the middle of installing.
func (o *Orchestrator) Run(ctx context.Context, targets []fleet.Target, reqs []requirements.Requirement) *Summary {
	summary := &Summary{RunID: uuidutil.NewV4()}
	logger := o.logger.WithFields(map[string]any{"run_id": summary.RunID})

	outcomes := make([]Outcome, 0, len(targets))
	// Reload-once hosts reload after their last environment was updated, so
	// the reload is deferred until the target loop is over.
	deferred := make(map[string]fleet.Target)
	var deferredHosts []string

	for _, target := range targets {
		outcome := o.runTarget(ctx, target, reqs, logger)
		if outcome.State == model.StateDone && target.ReloadOnce && !allSkips(outcome.Actions) {
			if _, ok := deferred[target.Host]; !ok {
				deferred[target.Host] = target
				deferredHosts = append(deferredHosts, target.Host)
			}
		}
		outcomes = append(outcomes, outcome)
	}

	reloadFailed := make(map[string]error)
	for _, host := range deferredHosts {
		if err := o.env.Reload(context.WithoutCancel(ctx), deferred[host]); err != nil {
			reloadFailed[host] = err
		}
	}

	for _, outcome := range outcomes {
		// A failed host reload fails every target whose new code it was
		// supposed to activate.
		if err, ok := reloadFailed[outcome.Target.Host]; ok &&
			outcome.State == model.StateDone && outcome.Target.ReloadOnce && !allSkips(outcome.Actions) {
			outcome = outcome.fail(err)
		}
		summary.Add(outcome)
		logger.Info("target finished", map[string]any{
			"target": outcome.Target.ID(),
			"state":  string(outcome.State),
		})
	}
	return summary
}

func (o *Orchestrator) runTarget(ctx context.Context, target fleet.Target, reqs []requirements.Requirement, logger *logging.Logger) Outcome {
	outcome := Outcome{Target: target}

	// An aborted run counts as declined for every target not yet confirmed.
	if ctx.Err() != nil {
		outcome.State = model.StateDeclined
		return outcome
	}

	// Fetching
	py, err := o.env.PythonVersion(ctx, target)
	if err != nil {
		return outcome.fail(err)
	}
	installed, err := o.env.Installed(ctx, target)
	if err != nil {
		return outcome.fail(err)
	}

	// Diffing
	actions := differ.Diff(reqs, installed, o.repo.ResolverFor(py))
	outcome.Actions = actions

	if unresolved := unresolvableNames(actions); len(unresolved) > 0 {
		outcome.Unresolvable = true
		return outcome.fail(errclass.ErrNoMatchingArtifact.WithMessagef(
			"missing artifacts for: %s", strings.Join(unresolved, ", ")))
	}

	if allSkips(actions) {
		// Nothing to do; no confirmation for a no-op deployment.
		outcome.State = model.StateDone
		return outcome
	}

	// AwaitingConfirmation
	if ctx.Err() != nil {
		outcome.State = model.StateDeclined
		return outcome
	}
	accepted, err := o.confirm.Confirm(target, actions)
	if err != nil {
		return outcome.fail(fmt.Errorf("confirmation: %w", err))
	}
	if !accepted {
		outcome.State = model.StateDeclined
		return outcome
	}

	// Confirmed work runs to its terminal state even if the run is
	// interrupted; cancellation is only honored at the checkpoints before
	// confirmation, never mid-install.
	ctx = context.WithoutCancel(ctx)

	// Installing. A failed action aborts the rest for this target; a target
	// with incomplete package state must not migrate or reload. Installed
	// packages are not rolled back.
	for _, action := range actions {
		if !action.Executable() {
			continue
		}
		if err := o.installOne(ctx, target, action, logger); err != nil {
			return outcome.fail(err)
		}
	}

	// Migrating
	if err := o.env.Migrate(ctx, target); err != nil {
		return outcome.fail(err)
	}

	// Reloading. Reload-once hosts reload from Run after the host's last
	// environment has been updated.
	if !target.ReloadOnce {
		if err := o.env.Reload(ctx, target); err != nil {
			return outcome.fail(err)
		}
	}

	outcome.State = model.StateDone
	return outcome
}

func (o *Orchestrator) installOne(ctx context.Context, target fleet.Target, action model.Action, logger *logging.Logger) error {
	wheelPath, err := o.env.Upload(ctx, target, o.repo.WheelPath(action.Artifact))
	if err != nil {
		return err
	}
	if err := o.env.Install(ctx, target, wheelPath); err != nil {
		return err
	}
	// The install succeeded; a failed audit append is logged but does not
	// fail the target.
	if err := o.repo.RecordInstall(target.ID(), action.Artifact); err != nil {
		logger.ErrorErr("record install", err, map[string]any{
			"target":  target.ID(),
			"package": action.Name,
		})
	}
	return nil
}

func allSkips(actions []model.Action) bool {
	for _, a := range actions {
		if a.Kind != model.ActionSkip {
			return false
		}
	}
	return true
}

func unresolvableNames(actions []model.Action) []string {
	var names []string
	for _, a := range actions {
		if a.Kind == model.ActionUnresolvable {
			names = append(names, a.Name)
		}
	}
	return names
}
