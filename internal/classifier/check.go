package classifier

import (
	"fmt"
	"os/exec"

	"github.com/idlab-discover/snidpipe/internal/apperr"
)

// DefaultCommand is the executable name SNID is installed under.
const DefaultCommand = "snid"

// CheckInstalled resolves command on PATH (or as a path) and returns its
// location. It is meant to run once at startup, before any Runner is used.
func CheckInstalled(command string) (string, error) {
	if command == "" {
		command = DefaultCommand
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%w: make sure %q invokes SNID: %v", apperr.ErrClassifierUnavailable, command, err)
	}
	return path, nil
}
