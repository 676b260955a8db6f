package stage

import (
	"io"

	"github.com/idlab-discover/snidpipe/internal/logging"
	"github.com/idlab-discover/snidpipe/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Stage:", PrefixColor: ui.FgMagenta}

// SetLogger sets an optional destination for stage logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(spectrum string, format string, args ...any) {
	logger.Logf(spectrum, format, args...)
}
