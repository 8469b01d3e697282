package lint

import (
	"github.com/goliatone/go-twig/pkg/config"
	"github.com/goliatone/go-twig/pkg/console"
)

// Summary tallies a run.
type Summary struct {
	Total   int
	Invalid int
}

// Valid returns the number of valid templates.
func (s Summary) Valid() int { return s.Total - s.Invalid }

// ExitCode is 0 when no template is invalid, 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Invalid > 0 {
		return 1
	}
	return 0
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, result := range results {
		if !result.Valid {
			s.Invalid++
		}
	}
	return s
}

// Reporter prints results to a console.
type Reporter struct {
	out    *console.Output
	radius int
}

// NewReporter returns a reporter printing radius lines of context around
// failures. A non-positive radius uses the default of 3.
func NewReporter(out *console.Output, radius int) *Reporter {
	if radius <= 0 {
		radius = config.DefaultContextLines
	}
	return &Reporter{out: out, radius: radius}
}

// Report prints every invalid result, the valid ones in verbose mode, and
// the summary line.
func (r *Reporter) Report(results []Result) Summary {
	for _, result := range results {
		if result.Valid {
			r.out.Verbose("OK in %s", result.File)
			continue
		}
		r.printError(result)
	}

	summary := Summarize(results)
	switch {
	case summary.Total == 0:
		r.out.Warning("No twig files found in the loader paths.")
	case summary.Invalid == 0:
		r.out.Success("All %d Twig files contain valid syntax.", summary.Total)
	default:
		r.out.Warning("%d Twig files have valid syntax and %d contain errors.", summary.Valid(), summary.Invalid)
	}
	return summary
}

func (r *Reporter) printError(result Result) {
	info := result.Err
	if info == nil {
		info = &ErrorInfo{Line: -1}
	}

	if info.Line == -1 {
		r.out.Line("%s in %s (%s)", r.out.ErrorLabel("SYNTAX ERROR"), result.File, info.RawMessage)
		return
	}

	r.out.Line("%s in %s (line %d)", r.out.ErrorLabel("ERROR"), result.File, info.Line)
	printed := false
	for _, ctx := range Context(result.Source, info.Line, r.radius) {
		marker := "  "
		if ctx.Number == info.Line {
			marker = r.out.ErrorLabel(">>")
		}
		r.out.Line("%s %-6d %s", marker, ctx.Number, ctx.Text)
		if ctx.Number == info.Line {
			r.out.Line("%s %s", r.out.ErrorLabel(">>"), info.RawMessage)
			printed = true
		}
	}
	// the reported line can lie past the end of the source
	if !printed {
		r.out.Line("%s %s", r.out.ErrorLabel(">>"), info.RawMessage)
	}
}
