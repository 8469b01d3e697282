package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-twig/pkg/console"
	"github.com/goliatone/go-twig/pkg/engine"
	"github.com/goliatone/go-twig/pkg/find"
	"github.com/goliatone/go-twig/pkg/lint"
	"github.com/goliatone/go-twig/pkg/loader"
	"github.com/goliatone/go-twig/pkg/render"
)

// Backed is a renderer that exposes its engine and namespaced loader.
type Backed interface {
	render.TemplateRenderer
	Environment() *engine.Environment
	Loader() *loader.FilesystemLoader
}

func backed(app *App) (Backed, error) {
	r, err := app.Renderer()
	if err != nil {
		return nil, err
	}
	b, ok := r.(Backed)
	if !ok || b.Environment() == nil || b.Loader() == nil {
		return nil, fmt.Errorf("%w: the renderer does not expose a namespaced loader", lint.ErrMisconfigured)
	}
	return b, nil
}

func newCompileCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "twig:compile",
		Short: "Check the syntax of every template in the loader paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := backed(app)
			if err != nil {
				return err
			}
			finder, err := find.New(app.Config.Lint.Ignore...)
			if err != nil {
				return err
			}
			runner, err := lint.NewRunner(r.Loader(), r.Environment(), r.Extension(),
				lint.WithFinder(finder),
				lint.WithLogger(app.Logger))
			if err != nil {
				return err
			}
			results, err := runner.Run()
			if err != nil {
				return err
			}

			out := console.New(cmd.OutOrStdout(), console.WithVerbose(app.Verbose))
			summary := lint.NewReporter(out, app.Config.ContextLines()).Report(results)
			if code := summary.ExitCode(); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
}
