package scanner

import (
	"io"

	"github.com/idlab-discover/snidpipe/internal/logging"
	"github.com/idlab-discover/snidpipe/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Scanner:", PrefixColor: ui.FgCyan}

// SetLogger sets the output for scanner debug logs. nil disables them.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(path string, format string, args ...any) {
	logger.Logf(path, format, args...)
}
