package pipeline

import (
	"io"

	"github.com/idlab-discover/snidpipe/internal/logging"
	"github.com/idlab-discover/snidpipe/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Pipeline:", PrefixColor: ui.FgGreen}

// SetLogger sets an optional destination for pipeline logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(spectrum string, format string, args ...any) {
	logger.Logf(spectrum, format, args...)
}
