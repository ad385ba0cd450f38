// Package fleet models the configured deployment targets and resolves
// operator-given selector strings against them.
package fleet

import (
	"fmt"
	"strings"

	"github.com/wheelhouse-project/wheelhouse/pkg/config"
	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
)

// Target is one (host, user, virtualenv path) tuple. Targets are resolved
// from configuration, never constructed ad hoc.
type Target struct {
	Host       string
	SSHUser    string // account used to connect
	User       string // account owning the virtualenv
	Path       string // virtualenv path on the host
	MigrateCmd string // empty means no migration step
	ReloadCmd  string // empty means no reload step
	ReloadOnce bool   // reload the host once per run, not once per target
}

// ID returns the canonical "user@host:path" identity of the target.
func (t Target) ID() string {
	return fmt.Sprintf("%s@%s:%s", t.User, t.Host, t.Path)
}

func (t Target) String() string { return t.ID() }

// Local reports whether commands run directly instead of over SSH.
func (t Target) Local() bool {
	return t.Host == "localhost" || t.Host == "127.0.0.1"
}

// FromConfig expands the host configuration into the flat target list,
// in configuration order.
func FromConfig(cfg *config.Config) []Target {
	var targets []Target
	for _, h := range cfg.Hosts {
		for _, env := range h.Envs {
			targets = append(targets, Target{
				Host:       h.Hostname,
				SSHUser:    env.SSHUser,
				User:       env.User,
				Path:       env.Path,
				MigrateCmd: env.MigrateCmd,
				ReloadCmd:  h.ReloadCmd,
				ReloadOnce: h.ReloadOnce,
			})
		}
	}
	return targets
}

// Resolve expands a selector into the matching targets, in configuration
// order. The selector grammar is [user@]host[:path]; each field is optional,
// so "alice@" selects every environment owned by alice, ":/srv/env" selects
// that path on every host, and an empty selector selects everything.
// Several selectors may be joined with commas; the result is their union.
// A selector matching nothing is an error, never silent success.
func Resolve(selector string, targets []Target) ([]Target, error) {
	queries := strings.Split(selector, ",")

	var matched []Target
	seen := make(map[string]struct{})
	for _, t := range targets {
		for _, q := range queries {
			if matches(t, strings.TrimSpace(q)) {
				if _, dup := seen[t.ID()]; !dup {
					seen[t.ID()] = struct{}{}
					matched = append(matched, t)
				}
				break
			}
		}
	}

	if len(matched) == 0 {
		return nil, errclass.ErrNoMatchingTarget.WithMessagef(
			"selector %q matches none of the %d configured targets", selector, len(targets))
	}
	return matched, nil
}

func matches(t Target, query string) bool {
	if i := strings.Index(query, "@"); i >= 0 {
		if t.User != query[:i] {
			return false
		}
		query = query[i+1:]
	}
	if i := strings.Index(query, ":"); i >= 0 {
		if t.Path != query[i+1:] {
			return false
		}
		query = query[:i]
	}
	if query == "" {
		return true
	}
	return t.Host == query
}
