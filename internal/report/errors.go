package report

import (
	"errors"
	"fmt"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("unrecognized classifier report")

var (
	// ErrDelimiterNotFound means a section marker is missing.
	ErrDelimiterNotFound = fmt.Errorf("%w: delimiter not found", ErrFormat)
	// ErrMisaligned means the type rows do not start where expected.
	ErrMisaligned = fmt.Errorf("%w: section misaligned", ErrFormat)
	// ErrMalformedRow means a row has the wrong number or kind of fields.
	ErrMalformedRow = fmt.Errorf("%w: malformed row", ErrFormat)
)

// Section names used in ReadError.
const (
	SectionType     = "type"
	SectionTemplate = "template"
)

// ReadError describes where a report failed to parse.
type ReadError struct {
	Path    string
	Section string
	// Line is 1-based; 0 when the failure is not tied to a line.
	Line int
	Msg  string
	Err  error
}

func (e *ReadError) Error() string {
	loc := e.Section + " section"
	if e.Line > 0 {
		loc = fmt.Sprintf("%s line %d", loc, e.Line)
	}
	if e.Msg == "" {
		return fmt.Sprintf("report %s: %s: %v", e.Path, loc, e.Err)
	}
	return fmt.Sprintf("report %s: %s: %v: %s", e.Path, loc, e.Err, e.Msg)
}

func (e *ReadError) Unwrap() error { return e.Err }
