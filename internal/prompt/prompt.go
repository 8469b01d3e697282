// Package prompt asks the user for confirmation on interactive terminals.
package prompt

import (
	"context"
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt: aborted")

// Confirmer asks yes/no questions.
type Confirmer interface {
	Confirm(ctx context.Context, message string, def bool) (bool, error)
}

// Survey prompts through survey/v2 on the process terminal.
type Survey struct {
	opts []survey.AskOpt
}

// NewSurvey returns a survey-backed Confirmer.
func NewSurvey(opts ...survey.AskOpt) *Survey {
	return &Survey{opts: opts}
}

func (s *Survey) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	q := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(q, &out, s.opts...); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

// Static answers every question with the same value. It stands in for a
// terminal in tests and non-interactive runs.
type Static bool

func (s Static) Confirm(ctx context.Context, _ string, _ bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

// Interactive reports whether f is attached to a terminal.
func Interactive(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
