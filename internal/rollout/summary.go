package rollout

import (
	"fmt"
	"strings"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/pkg/color"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// Exit codes for the deploy operation.
const (
	ExitOK           = 0
	ExitFailed       = 1
	ExitUnresolvable = 2
)

// Outcome is the terminal result of one target's state machine.
type Outcome struct {
	Target       fleet.Target       `json:"target"`
	State        model.RolloutState `json:"state"`
	Actions      []model.Action     `json:"actions,omitempty"`
	Err          error              `json:"-"`
	Cause        string             `json:"cause,omitempty"`
	Unresolvable bool               `json:"unresolvable,omitempty"`
}

func (o Outcome) fail(err error) Outcome {
	o.State = model.StateFailed
	o.Err = err
	o.Cause = err.Error()
	return o
}

// Summary aggregates a rollout run.
type Summary struct {
	RunID        string    `json:"run_id"`
	Outcomes     []Outcome `json:"outcomes"`
	Done         int       `json:"done"`
	Declined     int       `json:"declined"`
	Failed       int       `json:"failed"`
	Unresolvable bool      `json:"unresolvable"`
}

// Add records one outcome.
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.State {
	case model.StateDone:
		s.Done++
	case model.StateDeclined:
		s.Declined++
	case model.StateFailed:
		s.Failed++
	}
	if o.Unresolvable {
		s.Unresolvable = true
	}
}

// ExitCode maps the aggregate outcome to the process exit status. An
// unresolvable requirement anywhere takes the distinct code even when other
// targets failed for other reasons.
func (s *Summary) ExitCode() int {
	if s.Unresolvable {
		return ExitUnresolvable
	}
	if s.Failed > 0 {
		return ExitFailed
	}
	return ExitOK
}

// Format renders the run summary table with per-target causes for failures.
func (s *Summary) Format() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n%d done, %d declined, %d failed\n", s.Done, s.Declined, s.Failed))
	for _, o := range s.Outcomes {
		switch o.State {
		case model.StateDone:
			sb.WriteString(fmt.Sprintf("  %s %s\n", color.Success("done    "), o.Target.ID()))
		case model.StateDeclined:
			sb.WriteString(fmt.Sprintf("  %s %s\n", color.Dim("declined"), o.Target.ID()))
		case model.StateFailed:
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n", color.Error("failed  "), o.Target.ID(), o.Cause))
		}
	}
	return sb.String()
}
