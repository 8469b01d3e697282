// Package console writes styled command output. Styling follows the
// terminal capabilities of the destination writer, so output captured in
// buffers or pipes is plain text.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Semantic colors
var (
	ColorError   = lipgloss.Color("#e53935")
	ColorSuccess = lipgloss.Color("#8BC34A")
	ColorWarning = lipgloss.Color("#FFC107")
	ColorInfo    = lipgloss.Color("#2196F3")
	ColorMuted   = lipgloss.Color("#6b7280")
)

// Output writes lines to an io.Writer.
type Output struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	verbose  bool

	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	infoStyle    lipgloss.Style
	headerStyle  lipgloss.Style
	mutedStyle   lipgloss.Style
}

// Option configures an Output.
type Option func(*Output)

// WithVerbose enables Verbose lines.
func WithVerbose(verbose bool) Option {
	return func(o *Output) { o.verbose = verbose }
}

// New returns an Output writing to w.
func New(w io.Writer, opts ...Option) *Output {
	r := lipgloss.NewRenderer(w)
	o := &Output{
		w:            w,
		renderer:     r,
		errorStyle:   r.NewStyle().Foreground(ColorError).Bold(true),
		successStyle: r.NewStyle().Foreground(ColorSuccess).Bold(true),
		warningStyle: r.NewStyle().Foreground(ColorWarning),
		infoStyle:    r.NewStyle().Foreground(ColorInfo),
		headerStyle:  r.NewStyle().Bold(true).Underline(true),
		mutedStyle:   r.NewStyle().Foreground(ColorMuted),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Writer returns the destination writer.
func (o *Output) Writer() io.Writer { return o.w }

// IsVerbose reports whether verbose output is enabled.
func (o *Output) IsVerbose() bool { return o.verbose }

// Line writes an unstyled line.
func (o *Output) Line(format string, args ...any) {
	fmt.Fprintln(o.w, sprintf(format, args))
}

// Info writes an informational line.
func (o *Output) Info(format string, args ...any) {
	fmt.Fprintln(o.w, o.infoStyle.Render(sprintf(format, args)))
}

// Success writes a success line.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintln(o.w, o.successStyle.Render(sprintf(format, args)))
}

// Warning writes a warning line.
func (o *Output) Warning(format string, args ...any) {
	fmt.Fprintln(o.w, o.warningStyle.Render(sprintf(format, args)))
}

// Error writes an error line.
func (o *Output) Error(format string, args ...any) {
	fmt.Fprintln(o.w, o.errorStyle.Render(sprintf(format, args)))
}

// Verbose writes an informational line only in verbose mode.
func (o *Output) Verbose(format string, args ...any) {
	if o.verbose {
		o.Info(format, args...)
	}
}

// ErrorLabel styles text for inline use in a Line.
func (o *Output) ErrorLabel(text string) string {
	return o.errorStyle.Render(text)
}

// Muted styles text for inline use in a Line.
func (o *Output) Muted(text string) string {
	return o.mutedStyle.Render(text)
}

// Section writes a header line.
func (o *Output) Section(title string) {
	fmt.Fprintln(o.w, o.headerStyle.Render(title))
}

// Table writes rows under headers, or a muted placeholder when rows is
// empty.
func (o *Output) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		o.Line(o.Muted("(none)"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(o.mutedStyle).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(o.w, t.Render())
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
