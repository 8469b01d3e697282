// Package command wires the template tooling into a cobra command tree.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	twig "github.com/goliatone/go-twig"
	"github.com/goliatone/go-twig/internal/logging"
	"github.com/goliatone/go-twig/internal/prompt"
	"github.com/goliatone/go-twig/pkg/config"
	"github.com/goliatone/go-twig/pkg/render"
)

// DefaultConfigPath is where the commands look for the configuration file.
var DefaultConfigPath = filepath.Join("config", config.FileName)

// annotationSkipConfig marks commands that run without loading twig.yaml.
const annotationSkipConfig = "twig/skip-config"

// Options customises how the command tree builds its collaborators.
type Options struct {
	// Load reads the configuration. The boolean reports whether a file
	// was found.
	Load func(path string) (config.Config, bool, error)
	// NewRenderer builds the renderer used by twig:compile and twig:debug.
	NewRenderer func(cfg config.Config, logger *zap.Logger) (render.TemplateRenderer, error)
	// NewLogger builds the process logger after flags are parsed.
	NewLogger func(verbose bool) (*zap.Logger, error)
	// Prompter confirms overwrites in twig:publish.
	Prompter prompt.Confirmer
	// Interactive reports whether prompting is possible.
	Interactive func() bool
}

func (o Options) withDefaults() Options {
	if o.Load == nil {
		o.Load = config.LoadOrDefault
	}
	if o.NewRenderer == nil {
		o.NewRenderer = func(cfg config.Config, logger *zap.Logger) (render.TemplateRenderer, error) {
			return twig.New(cfg, twig.WithLogger(logger))
		}
	}
	if o.NewLogger == nil {
		o.NewLogger = logging.New
	}
	if o.Prompter == nil {
		o.Prompter = prompt.NewSurvey()
	}
	if o.Interactive == nil {
		o.Interactive = func() bool { return prompt.Interactive(os.Stdin) }
	}
	return o
}

// App is the state shared by every command of one invocation.
type App struct {
	Config     config.Config
	ConfigPath string
	Verbose    bool
	Logger     *zap.Logger

	opts     Options
	renderer render.TemplateRenderer
}

// NewApp returns an App using opts, with unset fields defaulted.
func NewApp(opts Options) *App {
	return &App{
		Config:     config.Default(),
		ConfigPath: DefaultConfigPath,
		Logger:     zap.NewNop(),
		opts:       opts.withDefaults(),
	}
}

// Renderer builds the renderer on first use.
func (a *App) Renderer() (render.TemplateRenderer, error) {
	if a.renderer != nil {
		return a.renderer, nil
	}
	r, err := a.opts.NewRenderer(a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	a.renderer = r
	return r, nil
}

func (a *App) boot(cmd *cobra.Command) error {
	logger, err := a.opts.NewLogger(a.Verbose)
	if err != nil {
		return err
	}
	a.Logger = logger

	if cmd.Annotations[annotationSkipConfig] == "true" {
		return nil
	}
	cfg, found, err := a.opts.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	a.Config = cfg
	if found {
		a.Logger.Debug("configuration loaded", zap.String("path", a.ConfigPath))
	} else {
		a.Logger.Debug("configuration file not found, using defaults", zap.String("path", a.ConfigPath))
	}
	return nil
}

// NewRootCommand returns the root command with every twig command
// registered.
func NewRootCommand(opts Options) *cobra.Command {
	app := NewApp(opts)
	root := &cobra.Command{
		Use:           "twig",
		Short:         "Template tooling for the twig renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.boot(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", DefaultConfigPath, "Path to the twig configuration file")
	root.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Print every checked file and debug logs")

	Register(root, app)
	return root
}

// Register adds the twig commands to root.
func Register(root *cobra.Command, app *App) {
	root.AddCommand(
		newCompileCommand(app),
		newClearCommand(app),
		newDebugCommand(app),
		newVersionCommand(app),
		newPublishCommand(app),
	)
}

// ExitError ends a command with a specific exit code after the command has
// already reported the failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute runs root and maps the outcome to a process exit code: 0 on
// success, the ExitError code for reported failures and 2 for anything
// else, which is printed to stderr.
func Execute(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", err)
	return 2
}
