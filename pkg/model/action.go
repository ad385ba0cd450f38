package model

import "fmt"

// ActionKind identifies the kind of a diff action.
type ActionKind string

const (
	ActionInstall      ActionKind = "install"
	ActionUpgrade      ActionKind = "upgrade"
	ActionSkip         ActionKind = "skip"
	ActionUnresolvable ActionKind = "unresolvable"
)

// Action is one step of a computed rollout plan. The Kind field is the
// closed tag; execution matches it exhaustively.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Name     string     `json:"name"`
	From     Version    `json:"from,omitempty"`    // upgrades only
	To       Version    `json:"to,omitempty"`      // installs and upgrades
	Artifact Artifact   `json:"artifact,omitzero"` // resolved wheel for installs and upgrades
	Reason   string     `json:"reason,omitempty"`  // skips and unresolvables
}

func (a Action) String() string {
	switch a.Kind {
	case ActionInstall:
		return fmt.Sprintf("install %s==%s", a.Name, a.To)
	case ActionUpgrade:
		return fmt.Sprintf("upgrade %s %s -> %s", a.Name, a.From, a.To)
	case ActionSkip:
		return fmt.Sprintf("skip %s (%s)", a.Name, a.Reason)
	case ActionUnresolvable:
		return fmt.Sprintf("unresolvable %s (%s)", a.Name, a.Reason)
	}
	return fmt.Sprintf("unknown action %q for %s", a.Kind, a.Name)
}

// Executable reports whether the action installs or upgrades a package.
func (a Action) Executable() bool {
	return a.Kind == ActionInstall || a.Kind == ActionUpgrade
}
