package extension

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/goliatone/go-twig/pkg/config"
)

// Facades exposes configured helpers as template globals, so that a
// facade "Html" bound to a helper is called as {{ Html.helloWorld() }}.
type Facades struct {
	strict  bool
	facades []*facade
}

type facade struct {
	cfg    config.Facade
	helper Helper
	strict bool
}

// NewFacades binds every configured facade to its helper. A facade naming
// an unregistered helper is an error when strict is set and is skipped with
// a warning otherwise; its methods then render empty.
func NewFacades(facades config.Facades, helpers *Registry, strict bool, logger *zap.Logger) (*Facades, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := &Facades{strict: strict}
	for _, cfg := range facades {
		helper, ok := helpers.Get(cfg.Class)
		if !ok {
			if strict {
				return nil, fmt.Errorf("The helper %q for facade %q does not exist.", cfg.Class, cfg.Name)
			}
			logger.Warn("facade helper not registered",
				zap.String("facade", cfg.Name),
				zap.String("helper", cfg.Class))
		}
		out.facades = append(out.facades, &facade{cfg: cfg, helper: helper, strict: strict})
	}
	return out, nil
}

func (f *Facades) Name() string { return "facades" }

// Functions exposes facade(name, method, args...) for calls whose method
// is only known at render time.
func (f *Facades) Functions() map[string]any {
	return map[string]any{"facade": f.Call}
}

func (f *Facades) Filters() map[string]pongo2.FilterFunction { return nil }

func (f *Facades) Globals() map[string]any {
	globals := make(map[string]any, len(f.facades))
	for _, fc := range f.facades {
		methods := make(map[string]any, len(fc.helper))
		for method := range fc.helper {
			method := method
			fc := fc
			methods[method] = func(args ...any) (*pongo2.Value, error) {
				return fc.call(method, args)
			}
		}
		globals[fc.cfg.Name] = methods
	}
	return globals
}

// Names lists the configured facade names in configuration order.
func (f *Facades) Names() []string {
	names := make([]string, 0, len(f.facades))
	for _, fc := range f.facades {
		names = append(names, fc.cfg.Name)
	}
	return names
}

// Call invokes method on the named facade.
func (f *Facades) Call(name, method string, args ...any) (*pongo2.Value, error) {
	for _, fc := range f.facades {
		if fc.cfg.Name == name {
			return fc.call(method, args)
		}
	}
	if f.strict {
		return nil, fmt.Errorf("The facade %q does not exist.", name)
	}
	return pongo2.AsValue(""), nil
}

func (fc *facade) call(method string, args []any) (*pongo2.Value, error) {
	fn, ok := fc.helper[method]
	if !ok {
		if fc.strict {
			return nil, fmt.Errorf("The method \"%s::%s\" does not exist.", fc.cfg.Class, method)
		}
		return pongo2.AsValue(""), nil
	}

	result, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("%s::%s: %w", fc.cfg.Class, method, err)
	}

	var text string
	switch v := result.(type) {
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		return pongo2.AsValue(result), nil
	}
	if fc.cfg.IsSafe(method) {
		return pongo2.AsSafeValue(text), nil
	}
	return pongo2.AsValue(text), nil
}
