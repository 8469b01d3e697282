package command

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-twig/pkg/console"
	"github.com/goliatone/go-twig/pkg/engine"
)

func newClearCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "twig:clear",
		Short: "Clear the template cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := console.New(cmd.OutOrStdout(), console.WithVerbose(app.Verbose))

			dir := strings.TrimSpace(app.Config.Cache)
			if dir == "" || !filepath.IsAbs(dir) {
				out.Error("Twig cache option is not defined as an absolute path, so it can't be cleaned.")
				return &ExitError{Code: 1}
			}
			cache, err := engine.NewDiskCache(dir)
			if err == nil {
				err = cache.Clear()
			}
			if err != nil {
				app.Logger.Warn("cache clear failed", zap.String("cache", dir), zap.Error(err))
				out.Error("Twig cache failed to be cleaned.")
				return &ExitError{Code: 1, Err: err}
			}
			out.Success("Twig cache cleaned.")
			return nil
		},
	}
}
