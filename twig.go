// Package twig assembles the template loader, the pongo2 environment and
// the template extensions from a config.Config.
package twig

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/goliatone/go-twig/pkg/config"
	"github.com/goliatone/go-twig/pkg/engine"
	"github.com/goliatone/go-twig/pkg/extension"
	"github.com/goliatone/go-twig/pkg/loader"
	"github.com/goliatone/go-twig/pkg/render"
)

// Option customises renderer assembly.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	helpers    *extension.Registry
	services   extension.Services
	urls       extension.URLGenerator
	request    extension.RequestContext
	baseDir    string
	extensions []engine.Extension
}

// WithLogger sets the logger passed to the engine and extensions.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHelpers supplies the helpers configured facades bind to.
func WithHelpers(helpers *extension.Registry) Option {
	return func(o *options) { o.helpers = helpers }
}

// WithServices supplies the values returned by service(name).
func WithServices(services extension.Services) Option {
	return func(o *options) { o.services = services }
}

// WithURLGenerator enables the routing extension together with
// WithRequestContext.
func WithURLGenerator(urls extension.URLGenerator) Option {
	return func(o *options) { o.urls = urls }
}

// WithRequestContext enables the routing extension together with
// WithURLGenerator.
func WithRequestContext(request extension.RequestContext) Option {
	return func(o *options) { o.request = request }
}

// WithBaseDir resolves relative template roots against dir.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithExtensions registers additional extensions after the built-in ones.
func WithExtensions(exts ...engine.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, exts...) }
}

// Renderer is the assembled template service.
type Renderer struct {
	cfg     config.Config
	loader  *loader.FilesystemLoader
	env     *engine.Environment
	facades *extension.Facades
	logger  *zap.Logger
}

var _ render.TemplateRenderer = (*Renderer)(nil)

// New validates cfg and builds the loader, environment and extensions.
func New(cfg config.Config, opts ...Option) (*Renderer, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{cfg: cfg, loader: loader.New(), logger: o.logger}
	for _, ns := range cfg.Paths {
		for _, root := range ns.Paths {
			if err := r.loader.AddPath(r.resolve(o.baseDir, root), ns.Name); err != nil {
				return nil, fmt.Errorf("twig: namespace %q: %w", ns.Name, err)
			}
		}
	}

	envOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithExtension(cfg.Extension),
		engine.WithDebug(cfg.Debug),
		engine.WithStrictVariables(cfg.StrictVariables),
		engine.WithAutoReload(cfg.AutoReload),
		engine.WithCacheSize(cfg.CacheSize),
		engine.WithWhitespaceControl(cfg.TrimBlocks, cfg.LStripBlocks),
		engine.WithGlobals(cfg.Globals),
	}
	if cfg.Cache != "" {
		cache, err := engine.NewDiskCache(cfg.Cache)
		switch {
		case errors.Is(err, engine.ErrCacheNotAbsolute):
			o.logger.Warn("template cache disabled", zap.String("cache", cfg.Cache), zap.Error(err))
		case err != nil:
			return nil, fmt.Errorf("twig: %w", err)
		default:
			envOpts = append(envOpts, engine.WithDiskCache(cache))
		}
	}

	env, err := engine.New(r.loader, envOpts...)
	if err != nil {
		return nil, fmt.Errorf("twig: %w", err)
	}
	r.env = env

	exts := []engine.Extension{extension.NewContainer(o.services, cfg.StrictVariables)}
	if cfg.Debug {
		exts = append(exts, extension.NewDebug())
	}
	if o.urls != nil && o.request != nil {
		exts = append(exts, extension.NewRouting(o.urls, o.request))
	}

	helpers := o.helpers
	if helpers == nil {
		helpers = extension.NewRegistry()
	}
	facades, err := extension.NewFacades(cfg.Facades, helpers, cfg.StrictVariables, o.logger)
	if err != nil {
		return nil, fmt.Errorf("twig: %w", err)
	}
	r.facades = facades
	exts = append(exts, facades)
	exts = append(exts, o.extensions...)

	for _, ext := range exts {
		if err := env.AddExtension(ext); err != nil {
			return nil, fmt.Errorf("twig: %w", err)
		}
	}
	o.logger.Debug("renderer ready",
		zap.Strings("namespaces", r.loader.Namespaces()),
		zap.Strings("extensions", env.Extensions()))
	return r, nil
}

func (r *Renderer) resolve(baseDir, root string) string {
	if baseDir == "" || filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(baseDir, root)
}

// Render renders the named template.
func (r *Renderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return r.env.Render(name, data, out...)
}

// RenderString renders inline template content.
func (r *Renderer) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	return r.env.RenderString(templateContent, data, out...)
}

// Extension returns the template file extension.
func (r *Renderer) Extension() string { return r.env.Extension() }

// AddPath appends a template root to namespace.
func (r *Renderer) AddPath(root, namespace string) error {
	return r.loader.AddPath(root, namespace)
}

// PrependPath puts a template root in front of namespace.
func (r *Renderer) PrependPath(root, namespace string) error {
	return r.loader.PrependPath(root, namespace)
}

// Environment returns the underlying engine.
func (r *Renderer) Environment() *engine.Environment { return r.env }

// Loader returns the namespaced loader.
func (r *Renderer) Loader() *loader.FilesystemLoader { return r.loader }

// Config returns the configuration the renderer was built from.
func (r *Renderer) Config() config.Config { return r.cfg }

// Facades returns the configured facades.
func (r *Renderer) Facades() *extension.Facades { return r.facades }
