package extension

import (
	"fmt"
	"sort"

	"github.com/flosch/pongo2/v6"
)

// Services are the values templates may look up with service(name).
type Services map[string]any

// Names lists the service names.
func (s Services) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Container exposes service(name).
type Container struct {
	services Services
	strict   bool
}

// NewContainer returns the container extension. Unknown services render as
// nil unless strict is set.
func NewContainer(services Services, strict bool) *Container {
	if services == nil {
		services = Services{}
	}
	return &Container{services: services, strict: strict}
}

func (c *Container) Name() string { return "container" }

func (c *Container) Functions() map[string]any {
	return map[string]any{"service": c.Service}
}

func (c *Container) Filters() map[string]pongo2.FilterFunction { return nil }

func (c *Container) Globals() map[string]any { return nil }

// Service returns the named service.
func (c *Container) Service(name string) (*pongo2.Value, error) {
	value, ok := c.services[name]
	if !ok {
		if c.strict {
			return nil, fmt.Errorf("The service %q does not exist.", name)
		}
		return pongo2.AsValue(nil), nil
	}
	return pongo2.AsValue(value), nil
}
