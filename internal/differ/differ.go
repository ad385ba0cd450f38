// Package differ computes the minimal action list that reconciles a
// target's installed packages against a requirements list, using the wheel
// repository as the single source of installable versions.
package differ

import (
	"errors"
	"fmt"

	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
	"github.com/wheelhouse-project/wheelhouse/pkg/nameutil"
)

// Resolver resolves a package name (and optional exact version) to the best
// matching artifact. Implemented by the repository; any compatibility-tag
// preference is captured by the caller before diffing.
type Resolver interface {
	Resolve(name string, constraint *model.Version) (model.Artifact, error)
}

// Skip reasons shown to the operator.
const (
	ReasonUnconstrained = "already installed, unconstrained"
	ReasonUpToDate      = "up to date"
)

// Diff compares requirements against the installed state and produces one
// action per requirement. It is deterministic and side-effect-free: the same
// inputs always yield the same ordered list.
//
// Installs, upgrades and unresolvables come first in requirements-list
// order; skips come last. Installed packages with no requirement are left
// untouched and not reported: wheelhouse never removes packages.
func Diff(reqs []requirements.Requirement, installed map[string]model.Version, repo Resolver) []model.Action {
	state := make(map[string]model.Version, len(installed))
	for name, v := range installed {
		state[nameutil.Normalize(name)] = v
	}

	var head, skips []model.Action
	for _, req := range reqs {
		current, present := state[req.Name]
		if !present {
			head = append(head, install(req, repo))
			continue
		}

		if req.Version == nil {
			// Unconstrained requirements are never upgraded automatically:
			// any installed version satisfies them.
			skips = append(skips, model.Action{
				Kind:   model.ActionSkip,
				Name:   req.Name,
				Reason: unconstrainedReason(req.Name, current, repo),
			})
			continue
		}

		if current.Compare(*req.Version) == 0 {
			skips = append(skips, model.Action{
				Kind:   model.ActionSkip,
				Name:   req.Name,
				Reason: ReasonUpToDate,
			})
			continue
		}

		head = append(head, upgrade(req, current, repo))
	}

	return append(head, skips...)
}

func install(req requirements.Requirement, repo Resolver) model.Action {
	a, err := repo.Resolve(req.Name, req.Version)
	if err != nil {
		return unresolvable(req.Name, err)
	}
	return model.Action{
		Kind:     model.ActionInstall,
		Name:     req.Name,
		To:       a.Version,
		Artifact: a,
	}
}

func upgrade(req requirements.Requirement, current model.Version, repo Resolver) model.Action {
	a, err := repo.Resolve(req.Name, req.Version)
	if err != nil {
		return unresolvable(req.Name, err)
	}
	return model.Action{
		Kind:     model.ActionUpgrade,
		Name:     req.Name,
		From:     current,
		To:       a.Version,
		Artifact: a,
	}
}

func unresolvable(name string, err error) model.Action {
	reason := err.Error()
	if e := (*errclass.Error)(nil); errors.As(err, &e) {
		reason = e.Message
	}
	return model.Action{
		Kind:   model.ActionUnresolvable,
		Name:   name,
		Reason: reason,
	}
}

// unconstrainedReason notes when the installed version is ahead of the best
// version the repository could offer. Purely informational: the action stays
// a skip either way.
func unconstrainedReason(name string, current model.Version, repo Resolver) string {
	best, err := repo.Resolve(name, nil)
	if err == nil && best.Version.Less(current) {
		return fmt.Sprintf("%s (installed %s is ahead of repository %s)",
			ReasonUnconstrained, current, best.Version)
	}
	return ReasonUnconstrained
}
