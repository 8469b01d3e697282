// Package lint checks the syntax of every template reachable through a
// namespaced loader and reports failures with source context.
package lint

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-twig/pkg/find"
	"github.com/goliatone/go-twig/pkg/loader"
)

// ErrMisconfigured is returned when a collaborator needed by the run is
// missing. It is raised before any file is processed.
var ErrMisconfigured = errors.New("lint: misconfigured")

// SourceProvider lists namespaces and their roots and resolves references.
type SourceProvider interface {
	Namespaces() []string
	Paths(namespace string) []string
	Source(name string) (loader.Source, error)
}

// FileFinder enumerates files below a root matching a pattern such as
// "*.twig", returned relative to the root.
type FileFinder interface {
	Find(root, pattern string) ([]string, error)
}

// Compiler parses a template without executing it.
type Compiler interface {
	CompileSource(src loader.Source) error
}

// lineError is implemented by compile errors that carry a template line.
type lineError interface {
	error
	TemplateLine() int
	RawMessage() string
}

// ErrorInfo locates a syntax failure. Line is -1 when the failure has no
// single source line.
type ErrorInfo struct {
	RawMessage string
	Line       int
}

// Result is the outcome of checking one template.
type Result struct {
	Name   string
	Source string
	File   string
	Valid  bool
	Err    *ErrorInfo
}

// Runner checks templates one at a time in namespace then root order.
type Runner struct {
	sources  SourceProvider
	finder   FileFinder
	compiler Compiler
	pattern  string
	logger   *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for per-file debug events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFinder replaces the default doublestar file finder.
func WithFinder(finder FileFinder) Option {
	return func(r *Runner) { r.finder = finder }
}

// NewRunner returns a runner checking files with extension ext.
func NewRunner(sources SourceProvider, compiler Compiler, ext string, opts ...Option) (*Runner, error) {
	if sources == nil {
		return nil, fmt.Errorf("%w: template source provider is required", ErrMisconfigured)
	}
	if compiler == nil {
		return nil, fmt.Errorf("%w: template compiler is required", ErrMisconfigured)
	}
	if ext == "" {
		return nil, fmt.Errorf("%w: template extension is required", ErrMisconfigured)
	}

	r := &Runner{
		sources:  sources,
		compiler: compiler,
		pattern:  find.ExtensionPattern(ext),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.finder == nil {
		finder, err := find.New()
		if err != nil {
			return nil, err
		}
		r.finder = finder
	}
	return r, nil
}

// Run checks every discovered template. Syntax errors are recorded in the
// results; enumeration and resolution errors abort the run.
func (r *Runner) Run() ([]Result, error) {
	var results []Result
	seen := make(map[string]struct{})

	for _, namespace := range r.sources.Namespaces() {
		for _, root := range r.sources.Paths(namespace) {
			files, err := r.finder.Find(root, r.pattern)
			if err != nil {
				return nil, fmt.Errorf("lint: enumerate %s: %w", root, err)
			}

			for _, file := range files {
				name := loader.Reference(namespace, file)
				if _, dup := seen[name]; dup {
					r.logger.Debug("template already checked", zap.String("template", name), zap.String("root", root))
					continue
				}
				seen[name] = struct{}{}

				src, err := r.sources.Source(name)
				if err != nil {
					return nil, fmt.Errorf("lint: resolve %s: %w", name, err)
				}

				result, err := r.check(src)
				if err != nil {
					return nil, err
				}
				results = append(results, result)
			}
		}
	}
	return results, nil
}

func (r *Runner) check(src loader.Source) (Result, error) {
	result := Result{Name: src.Name, Source: src.Code, File: src.Path, Valid: true}

	err := r.compiler.CompileSource(src)
	if err == nil {
		r.logger.Debug("template valid", zap.String("template", src.Name))
		return result, nil
	}

	var le lineError
	if !errors.As(err, &le) {
		return Result{}, fmt.Errorf("lint: compile %s: %w", src.Name, err)
	}

	line := le.TemplateLine()
	if line <= 0 {
		line = -1
	}
	result.Valid = false
	result.Err = &ErrorInfo{RawMessage: le.RawMessage(), Line: line}
	r.logger.Debug("template invalid",
		zap.String("template", src.Name),
		zap.Int("line", line),
		zap.String("error", le.RawMessage()))
	return result, nil
}
