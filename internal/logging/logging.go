package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/ui"
)

// Logger is a tiny opt-in logger used across internal packages.
// When Writer is nil, logging is disabled.
//
// The output format is:
//
//	<ColoredPrefix> spectrum=<name> <formattedMessage>\n
//
// where <name> is trimmed and defaults to "(unknown)".
type Logger struct {
	Writer io.Writer

	PrefixText  string
	PrefixColor string

	// OmitSubject controls whether the spectrum field is written.
	// When false (default), output includes: "spectrum=<name>".
	OmitSubject bool
}

func (l *Logger) SetWriter(w io.Writer) { l.Writer = w }

func (l *Logger) Enabled() bool { return l != nil && l.Writer != nil }

func (l *Logger) Logf(spectrum string, format string, args ...any) {
	if l == nil || l.Writer == nil {
		return
	}
	prefix := l.PrefixText
	if prefix == "" {
		prefix = "Log:"
	}
	if l.PrefixColor != "" {
		prefix = ui.Color(prefix, l.PrefixColor)
	}
	msg := fmt.Sprintf(format, args...)
	if l.OmitSubject {
		fmt.Fprintf(l.Writer, "%s %s\n", prefix, msg)
		return
	}

	s := strings.TrimSpace(spectrum)
	if s == "" {
		s = "(unknown)"
	}
	fmt.Fprintf(l.Writer, "%s spectrum=%s %s\n", prefix, s, msg)
}
