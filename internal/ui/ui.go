package ui

import "os"

// Basic ANSI color codes (legacy - used by logging package).
// New code should use lipgloss styles from styles.go instead.
const (
	Reset = "\033[0m"
	// LegacyBold is the raw ANSI code for bold text
	LegacyBold = "\033[1m"
	FgCyan     = "\033[36m"
	FgGreen    = "\033[32m"
	FgMagenta  = "\033[35m"
	FgYellow   = "\033[33m"
	FgRed      = "\033[31m"
)

var colorDisabled = os.Getenv("NO_COLOR") != ""

// Init configures legacy coloring. noColor disables ANSI codes in Color.
func Init(noColor bool) {
	colorDisabled = noColor || os.Getenv("NO_COLOR") != ""
}

// Color wraps a string with the given ANSI code.
// Deprecated: Use lipgloss styles from styles.go instead.
func Color(s string, code string) string {
	if colorDisabled || code == "" {
		return s
	}
	return code + s + Reset
}
