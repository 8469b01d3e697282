// Package engine wraps a pongo2 template set behind the namespaced loader,
// adding a compiled-template cache, an optional on-disk source cache and a
// syntax-only compile entry point.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/goliatone/go-twig/pkg/loader"
)

// SourceLoader resolves template references to their source.
type SourceLoader interface {
	Source(name string) (loader.Source, error)
}

// Extension contributes functions, filters and globals to an Environment.
type Extension interface {
	Name() string
	Functions() map[string]any
	Filters() map[string]pongo2.FilterFunction
	Globals() map[string]any
}

// Option configures an Environment before construction.
type Option func(*options)

type options struct {
	logger       *zap.Logger
	extension    string
	debug        bool
	strict       bool
	autoReload   bool
	cacheSize    int
	disk         *DiskCache
	trimBlocks   bool
	lstripBlocks bool
	globals      map[string]any
}

// WithLogger sets the logger used for cache and registration events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExtension sets the extension appended to names passed to Render
// when they lack it.
func WithExtension(ext string) Option {
	return func(o *options) {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			o.extension = ext
		}
	}
}

// WithDebug toggles pongo2 debug mode.
func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

// WithStrictVariables records whether extensions should fail on unknown
// lookups. Extensions read it through Environment.Strict.
func WithStrictVariables(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithAutoReload controls whether disk cache snapshots are bypassed.
func WithAutoReload(reload bool) Option {
	return func(o *options) { o.autoReload = reload }
}

// WithCacheSize bounds the compiled template cache. Zero disables it.
func WithCacheSize(size int) Option {
	return func(o *options) {
		if size >= 0 {
			o.cacheSize = size
		}
	}
}

// WithDiskCache stores source snapshots in cache.
func WithDiskCache(cache *DiskCache) Option {
	return func(o *options) { o.disk = cache }
}

// WithWhitespaceControl maps to pongo2 TrimBlocks and LStripBlocks.
func WithWhitespaceControl(trimBlocks, lstripBlocks bool) Option {
	return func(o *options) {
		o.trimBlocks = trimBlocks
		o.lstripBlocks = lstripBlocks
	}
}

// WithGlobals seeds values available to every template.
func WithGlobals(globals map[string]any) Option {
	return func(o *options) {
		if len(globals) == 0 {
			return
		}
		if o.globals == nil {
			o.globals = make(map[string]any, len(globals))
		}
		for key, value := range globals {
			o.globals[strings.TrimSpace(key)] = value
		}
	}
}

// Environment renders and compiles templates from a SourceLoader.
type Environment struct {
	mu sync.RWMutex

	set        *pongo2.TemplateSet
	sources    SourceLoader
	compiled   *lru.Cache[string, compiledTemplate]
	disk       *DiskCache
	logger     *zap.Logger
	extension  string
	strict     bool
	debug      bool
	autoReload bool

	functions  map[string]struct{}
	filters    map[string]struct{}
	globals    map[string]struct{}
	extensions []string
}

// compiledTemplate is a cache entry. Sources holds the checksum of the
// template and of every template parsed into it (parents, static includes
// and imports), keyed by reference.
type compiledTemplate struct {
	tpl     *pongo2.Template
	sources map[string]string
}

// New builds an Environment reading templates through sources.
func New(sources SourceLoader, opts ...Option) (*Environment, error) {
	if sources == nil {
		return nil, errors.New("engine: source loader is required")
	}

	o := &options{
		logger:     zap.NewNop(),
		extension:  "twig",
		autoReload: true,
		cacheSize:  256,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	env := &Environment{
		sources:    sources,
		disk:       o.disk,
		logger:     o.logger.Named("engine"),
		extension:  o.extension,
		strict:     o.strict,
		debug:      o.debug,
		autoReload: o.autoReload,
		functions:  make(map[string]struct{}),
		filters:    make(map[string]struct{}),
		globals:    make(map[string]struct{}),
	}

	env.set = pongo2.NewSet("twig", &setLoader{env: env})
	env.set.Debug = o.debug
	if env.set.Options != nil {
		env.set.Options.TrimBlocks = o.trimBlocks
		env.set.Options.LStripBlocks = o.lstripBlocks
	}
	if env.set.Globals == nil {
		env.set.Globals = make(pongo2.Context)
	}

	if o.cacheSize > 0 {
		cache, err := lru.New[string, compiledTemplate](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("engine: create template cache: %w", err)
		}
		env.compiled = cache
	}

	if err := registerDefaultFilters(env); err != nil {
		return nil, err
	}
	for name, value := range o.globals {
		if err := env.AddGlobal(name, value); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Extension returns the template file extension without the dot.
func (e *Environment) Extension() string { return e.extension }

// Strict reports whether unknown lookups should fail renders.
func (e *Environment) Strict() bool { return e.strict }

// Debug reports whether debug mode is on.
func (e *Environment) Debug() bool { return e.debug }

// DiskCache returns the configured source cache, or nil.
func (e *Environment) DiskCache() *DiskCache { return e.disk }

// Render executes the named template. The configured extension is
// appended when name lacks it.
func (e *Environment) Render(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("engine: environment is nil")
	}
	if suffix := "." + e.extension; !strings.HasSuffix(name, suffix) {
		name += suffix
	}

	tpl, err := e.Load(name)
	if err != nil {
		return "", err
	}
	return e.execute(tpl, name, data, out)
}

// RenderString compiles and executes content without caching it.
func (e *Environment) RenderString(content string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("engine: environment is nil")
	}
	tpl, err := e.set.FromString(content)
	if err != nil {
		return "", newCompileError("<string>", err)
	}
	return e.execute(tpl, "<string>", data, out)
}

// Load returns the compiled template for name. A cached entry is reused
// only while the template and every template compiled into it still have
// the checksums recorded when it was built.
func (e *Environment) Load(name string) (*pongo2.Template, error) {
	src, err := e.source(name)
	if err != nil {
		return nil, err
	}

	if e.compiled != nil {
		if entry, ok := e.compiled.Get(src.Name); ok && e.fresh(entry, src) {
			return entry.tpl, nil
		}
	}

	deps := &setLoader{env: e, sums: make(map[string]string)}
	tpl, err := e.derivedSet(deps).FromBytes([]byte(src.Code))
	if err != nil {
		return nil, newCompileError(src.Name, err)
	}
	if e.compiled != nil {
		sums := deps.checksums()
		sums[src.Name] = src.Checksum()
		e.compiled.Add(src.Name, compiledTemplate{tpl: tpl, sources: sums})
	}
	e.logger.Debug("compiled template", zap.String("template", src.Name), zap.String("path", src.Path))
	return tpl, nil
}

func (e *Environment) fresh(entry compiledTemplate, src loader.Source) bool {
	for name, sum := range entry.sources {
		if name == src.Name {
			if sum != src.Checksum() {
				return false
			}
			continue
		}
		dep, err := e.source(name)
		if err != nil || dep.Checksum() != sum {
			e.logger.Debug("template dependency changed",
				zap.String("template", src.Name),
				zap.String("dependency", name))
			return false
		}
	}
	return true
}

// CompileSource parses src without executing it. Syntax failures are
// returned as *CompileError. Referenced templates are not checked: a
// parent, include or import that is missing or fails to parse is served
// empty, so only errors in src itself are reported.
func (e *Environment) CompileSource(src loader.Source) error {
	pl := &parseLoader{
		env:      e,
		checked:  make(map[string]bool),
		visiting: make(map[string]bool),
	}
	pl.set = e.derivedSet(pl)
	if _, err := pl.set.FromBytes([]byte(src.Code)); err != nil {
		return newCompileError(src.Name, err)
	}
	return nil
}

// derivedSet returns a template set reading through l that shares the
// environment's globals and options.
func (e *Environment) derivedSet(l pongo2.TemplateLoader) *pongo2.TemplateSet {
	set := pongo2.NewSet("twig", l)
	set.Debug = e.set.Debug
	set.Globals = e.set.Globals
	set.Options.Update(e.set.Options)
	return set
}

// filtersMu serialises changes to the pongo2 filter registry, which is
// shared by every Environment in the process.
var filtersMu sync.Mutex

// RegisterFilter registers a filter backed by a plain Go function.
//
// Filters are process-wide in pongo2: a name registered by any Environment
// is visible to all of them, and registering it again fails, also from a
// second Environment. Register filters during setup, before templates are
// compiled.
func (e *Environment) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("engine: filter name and function required")
	}

	filtersMu.Lock()
	defer filtersMu.Unlock()
	if pongo2.FilterExists(name) {
		return fmt.Errorf("engine: filter %q already exists", name)
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}
	if err := pongo2.RegisterFilter(name, filter); err != nil {
		return fmt.Errorf("engine: register filter %q: %w", name, err)
	}
	e.track(e.filters, name)
	return nil
}

// RegisterFunction exposes fn to templates as a callable global.
func (e *Environment) RegisterFunction(name string, fn any) error {
	name = strings.TrimSpace(name)
	if name == "" || !isCallable(fn) {
		return fmt.Errorf("engine: function %q must be a non-nil func", name)
	}

	e.mu.Lock()
	e.set.Globals[name] = fn
	e.functions[name] = struct{}{}
	e.mu.Unlock()
	return nil
}

// AddGlobal exposes value to every template.
func (e *Environment) AddGlobal(name string, value any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("engine: global name is required")
	}
	converted, err := convertValue(value)
	if err != nil {
		return fmt.Errorf("engine: convert global %q: %w", name, err)
	}

	e.mu.Lock()
	e.set.Globals[name] = converted
	e.globals[name] = struct{}{}
	e.mu.Unlock()
	return nil
}

// AddExtension registers every function, filter and global of ext.
// Extension filters replace existing filters of the same name for every
// Environment in the process, see RegisterFilter.
func (e *Environment) AddExtension(ext Extension) error {
	if ext == nil {
		return errors.New("engine: extension is nil")
	}

	for name, fn := range ext.Functions() {
		if err := e.RegisterFunction(name, fn); err != nil {
			return fmt.Errorf("engine: extension %s: %w", ext.Name(), err)
		}
	}
	for name, filter := range ext.Filters() {
		if err := e.setFilter(name, filter); err != nil {
			return fmt.Errorf("engine: extension %s: %w", ext.Name(), err)
		}
	}
	for name, value := range ext.Globals() {
		e.mu.Lock()
		e.set.Globals[name] = value
		e.globals[name] = struct{}{}
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.extensions = append(e.extensions, ext.Name())
	e.mu.Unlock()
	e.logger.Debug("extension registered", zap.String("extension", ext.Name()))
	return nil
}

// Functions lists registered function names.
func (e *Environment) Functions() []string { return e.names(e.functions) }

// Filters lists filters registered through this environment.
func (e *Environment) Filters() []string { return e.names(e.filters) }

// Globals lists global names.
func (e *Environment) Globals() []string { return e.names(e.globals) }

// Extensions lists extension names in registration order.
func (e *Environment) Extensions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.extensions...)
}

func (e *Environment) setFilter(name string, filter pongo2.FilterFunction) error {
	if filter == nil {
		return fmt.Errorf("filter %q is nil", name)
	}
	filtersMu.Lock()
	defer filtersMu.Unlock()
	var err error
	if pongo2.FilterExists(name) {
		err = pongo2.ReplaceFilter(name, filter)
	} else {
		err = pongo2.RegisterFilter(name, filter)
	}
	if err != nil {
		return fmt.Errorf("register filter %q: %w", name, err)
	}
	e.track(e.filters, name)
	return nil
}

func (e *Environment) execute(tpl *pongo2.Template, name string, data any, out []io.Writer) (string, error) {
	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("engine: convert data: %w", err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("engine: execute template %q: %w", name, err)
	}

	rendered := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

// source reads name through the disk cache when auto reload is off, and
// refreshes the snapshot otherwise.
func (e *Environment) source(name string) (loader.Source, error) {
	if e.disk != nil && !e.autoReload {
		src, ok, err := e.disk.Load(name)
		if err != nil {
			e.logger.Warn("disk cache read failed", zap.String("template", name), zap.Error(err))
		} else if ok {
			return src, nil
		}
	}

	src, err := e.sources.Source(name)
	if err != nil {
		return loader.Source{}, err
	}
	if e.disk != nil {
		if err := e.disk.Store(src); err != nil {
			e.logger.Warn("disk cache write failed", zap.String("template", name), zap.Error(err))
		}
	}
	return src, nil
}

func (e *Environment) track(set map[string]struct{}, name string) {
	e.mu.Lock()
	set[name] = struct{}{}
	e.mu.Unlock()
}

func (e *Environment) names(set map[string]struct{}) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// setLoader lets pongo2 resolve extends and include tags through the
// environment, so referenced templates honour the disk cache too. When
// sums is set it records the checksum of every template it serves.
type setLoader struct {
	env *Environment

	mu   sync.Mutex
	sums map[string]string
}

func (l *setLoader) Abs(_, name string) string {
	return name
}

func (l *setLoader) Get(path string) (io.Reader, error) {
	src, err := l.env.source(path)
	if err != nil {
		return nil, err
	}
	if l.sums != nil {
		l.mu.Lock()
		l.sums[path] = src.Checksum()
		l.mu.Unlock()
	}
	return strings.NewReader(src.Code), nil
}

func (l *setLoader) checksums() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.sums)+1)
	for name, sum := range l.sums {
		out[name] = sum
	}
	return out
}

// parseLoader serves referenced templates to syntax-only compiles. Only
// references that exist and parse on their own are served with their
// source, so blocks and macros still resolve; everything else, including
// a reference cycle, is served empty.
type parseLoader struct {
	env      *Environment
	set      *pongo2.TemplateSet
	checked  map[string]bool
	visiting map[string]bool
}

func (l *parseLoader) Abs(_, name string) string {
	return name
}

func (l *parseLoader) Get(path string) (io.Reader, error) {
	src, err := l.env.source(path)
	if err != nil || !l.parses(path, src.Code) {
		return strings.NewReader(""), nil
	}
	return strings.NewReader(src.Code), nil
}

func (l *parseLoader) parses(path, code string) bool {
	if ok, done := l.checked[path]; done {
		return ok
	}
	if l.visiting[path] {
		// every template on the current chain is part of the cycle
		for name := range l.visiting {
			l.checked[name] = false
		}
		return false
	}
	l.visiting[path] = true
	_, err := l.set.FromBytes([]byte(code))
	delete(l.visiting, path)

	if ok, done := l.checked[path]; done {
		return ok
	}
	l.checked[path] = err == nil
	return err == nil
}
