package report

import (
	"io"

	"github.com/idlab-discover/snidpipe/internal/logging"
	"github.com/idlab-discover/snidpipe/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Report:", PrefixColor: ui.FgYellow}

// SetLogger sets an optional destination for report logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(spectrum string, format string, args ...any) {
	logger.Logf(spectrum, format, args...)
}
