package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-twig/pkg/config"
	"github.com/goliatone/go-twig/pkg/console"
)

func newPublishCommand(app *App) *cobra.Command {
	var (
		dir   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "twig:publish",
		Short: "Copy the default twig.yaml into the configuration directory",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			annotationSkipConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := console.New(cmd.OutOrStdout(), console.WithVerbose(app.Verbose))
			target := filepath.Join(dir, config.FileName)

			if _, err := os.Stat(target); err == nil && !force {
				overwrite := false
				if app.opts.Interactive() {
					overwrite, err = app.opts.Prompter.Confirm(cmd.Context(),
						fmt.Sprintf("%s already exists. Overwrite it?", target), false)
					if err != nil {
						return err
					}
				}
				if !overwrite {
					out.Warning("Kept existing %s (use --force to overwrite).", target)
					return nil
				}
			} else if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("publish: stat %s: %w", target, err)
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("publish: create %s: %w", dir, err)
			}
			if err := atomic.WriteFile(target, bytes.NewReader(config.DefaultFile())); err != nil {
				return fmt.Errorf("publish: write %s: %w", target, err)
			}
			app.Logger.Debug("configuration published", zap.String("path", target))
			out.Success("Published %s.", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "config", "Directory receiving twig.yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file without asking")
	return cmd
}
