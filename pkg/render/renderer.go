// Package render defines the seam application code renders templates
// through, so handlers do not depend on the engine directly.
package render

import "io"

// TemplateRenderer renders templates by name or from inline content.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	// Extension returns the template file extension without the dot.
	Extension() string
}

// Func adapts a function to TemplateRenderer for tests and fakes. Inline
// content is passed as name.
type Func func(name string, data any) (string, error)

func (f Func) Render(name string, data any, out ...io.Writer) (string, error) {
	return write(f, name, data, out)
}

func (f Func) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	return write(f, templateContent, data, out)
}

func (f Func) Extension() string { return "twig" }

func write(f Func, name string, data any, out []io.Writer) (string, error) {
	rendered, err := f(name, data)
	if err != nil {
		return "", err
	}
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}
