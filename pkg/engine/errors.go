package engine

import (
	"errors"
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// CompileError describes a template that failed to parse.
type CompileError struct {
	Name    string
	Line    int
	Column  int
	Message string
	Err     error
}

func newCompileError(name string, err error) *CompileError {
	ce := &CompileError{Name: name, Line: -1, Message: err.Error(), Err: err}

	var perr *pongo2.Error
	if errors.As(err, &perr) {
		if perr.Line > 0 {
			ce.Line = perr.Line
			ce.Column = perr.Column
		}
		if perr.OrigError != nil {
			ce.Message = perr.OrigError.Error()
		}
	}
	return ce
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("engine: %s in %q at line %d", e.Message, e.Name, e.Line)
	}
	return fmt.Sprintf("engine: %s in %q", e.Message, e.Name)
}

func (e *CompileError) Unwrap() error { return e.Err }

// TemplateLine returns the 1-based line of the failure, or -1 when the
// parser reported none.
func (e *CompileError) TemplateLine() int {
	if e.Line <= 0 {
		return -1
	}
	return e.Line
}

// RawMessage returns the parser message without location details.
func (e *CompileError) RawMessage() string { return e.Message }
