package command

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-twig/pkg/console"
	"github.com/goliatone/go-twig/pkg/engine"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "twig:version",
		Short: "Print the template engine version",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			console.New(cmd.OutOrStdout(), console.WithVerbose(app.Verbose)).
				Info("Twig version %s", engine.Version())
			return nil
		},
	}
}
