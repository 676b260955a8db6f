package classifier

import (
	"io"

	"github.com/idlab-discover/snidpipe/internal/logging"
	"github.com/idlab-discover/snidpipe/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Classifier:", PrefixColor: ui.FgCyan}

// SetLogger sets an optional destination for classifier logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(spectrum string, format string, args ...any) {
	logger.Logf(spectrum, format, args...)
}
