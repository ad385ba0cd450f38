package rollout

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/pkg/color"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// Confirmer decides whether an action list may be executed on a target.
// Separating this from diff computation and execution allows headless
// policies (auto-accept, auto-decline) without simulating terminal input.
type Confirmer interface {
	Confirm(target fleet.Target, actions []model.Action) (bool, error)
}

// AutoConfirmer accepts or declines everything without interaction.
type AutoConfirmer bool

func (a AutoConfirmer) Confirm(fleet.Target, []model.Action) (bool, error) {
	return bool(a), nil
}

// PromptConfirmer shows the action list and reads a yes/no answer.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

func (p *PromptConfirmer) Confirm(target fleet.Target, actions []model.Action) (bool, error) {
	// One reader for the confirmer's lifetime: a fresh bufio.Reader per call
	// would buffer past the first line and lose the following answers.
	p.once.Do(func() { p.reader = bufio.NewReader(p.In) })

	fmt.Fprintf(p.Out, "\n%s\n", color.Info(target.ID()))
	fmt.Fprint(p.Out, FormatActions(actions))
	fmt.Fprintf(p.Out, "apply? [y/n] ")

	answer, err := p.reader.ReadString('\n')
	if err != nil && answer == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// FormatActions renders an action list for the operator. The order is the
// differ's order, which is stable run-to-run.
func FormatActions(actions []model.Action) string {
	var sb strings.Builder
	for _, a := range actions {
		switch a.Kind {
		case model.ActionInstall:
			sb.WriteString("  " + color.Success("+ "+a.String()) + "\n")
		case model.ActionUpgrade:
			sb.WriteString("  " + color.Warning("~ "+a.String()) + "\n")
		case model.ActionSkip:
			sb.WriteString("  " + color.Dim("= "+a.String()) + "\n")
		case model.ActionUnresolvable:
			sb.WriteString("  " + color.Error("! "+a.String()) + "\n")
		}
	}
	return sb.String()
}
