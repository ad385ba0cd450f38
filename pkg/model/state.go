package model

// RolloutState is the per-target rollout state machine position.
type RolloutState string

const (
	StateFetching             RolloutState = "fetching"
	StateDiffing              RolloutState = "diffing"
	StateAwaitingConfirmation RolloutState = "awaiting_confirmation"
	StateInstalling           RolloutState = "installing"
	StateMigrating            RolloutState = "migrating"
	StateReloading            RolloutState = "reloading"
	StateDone                 RolloutState = "done"
	StateDeclined             RolloutState = "declined"
	StateFailed               RolloutState = "failed"
)

// Terminal reports whether the state ends processing for a target.
func (s RolloutState) Terminal() bool {
	return s == StateDone || s == StateDeclined || s == StateFailed
}
