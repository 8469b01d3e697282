package extension

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Debug exposes dump(values...), rendering each value as indented JSON
// inside a <pre> block.
type Debug struct{}

// NewDebug returns the debug extension.
func NewDebug() *Debug { return &Debug{} }

func (d *Debug) Name() string { return "debug" }

func (d *Debug) Functions() map[string]any {
	return map[string]any{"dump": d.Dump}
}

func (d *Debug) Filters() map[string]pongo2.FilterFunction { return nil }

func (d *Debug) Globals() map[string]any { return nil }

// Dump renders values as a safe HTML fragment.
func (d *Debug) Dump(values ...any) *pongo2.Value {
	var b strings.Builder
	b.WriteString(`<pre class="twig-dump">`)
	for i, value := range values {
		if i > 0 {
			b.WriteString("\n")
		}
		raw, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			b.WriteString(html.EscapeString(err.Error()))
			continue
		}
		b.WriteString(html.EscapeString(string(raw)))
	}
	b.WriteString("</pre>")
	return pongo2.AsSafeValue(b.String())
}
