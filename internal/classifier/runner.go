package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/idlab-discover/snidpipe/internal/apperr"
)

// ReportSuffix is appended to the spectrum base name to form the report name.
const ReportSuffix = "_snid.output"

// quietFlags turn off SNID's plotting, interaction and chatter.
var quietFlags = []string{"plot=0", "inter=0", "verbose=0"}

// ErrNoReport means SNID exited without writing a report. Callers treat it
// as an undetermined outcome, not a failure.
var ErrNoReport = errors.New("classifier produced no report")

// Runner invokes SNID as a blocking subprocess.
//
// The report for a spectrum always lands at the same path, so two Runs for
// spectra with the same base name must not share a Dir concurrently.
type Runner struct {
	// Command is the executable name or path. Defaults to DefaultCommand.
	Command string
	// Dir is the working directory SNID runs in and writes its report to.
	// Empty means the current process directory.
	Dir string
	// Timeout bounds one invocation. Zero waits indefinitely.
	Timeout time.Duration
}

// ReportName returns the report file name SNID derives from a spectrum path:
// the base name up to its first dot, plus ReportSuffix.
func ReportName(spectrum string) string {
	base := filepath.Base(spectrum)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base + ReportSuffix
}

// ReportPath returns where the report for spectrum will be written.
func (r *Runner) ReportPath(spectrum string) string {
	return filepath.Join(r.Dir, ReportName(spectrum))
}

func (r *Runner) command() string {
	if strings.TrimSpace(r.Command) == "" {
		return DefaultCommand
	}
	return r.Command
}

// Argv returns the full argument list (without the executable) for one run.
func (r *Runner) Argv(spectrum string, args Args) ([]string, error) {
	tokens, err := args.Tokens()
	if err != nil {
		return nil, err
	}
	argv := make([]string, 0, len(tokens)+len(quietFlags)+1)
	argv = append(argv, tokens...)
	argv = append(argv, quietFlags...)
	return append(argv, spectrum), nil
}

// Run deletes any stale report, runs SNID on spectrum and returns the path of
// the fresh report. It returns ErrNoReport when SNID wrote nothing. The report
// is left in place afterwards.
func (r *Runner) Run(ctx context.Context, spectrum string, args Args) (string, error) {
	name := filepath.Base(spectrum)

	specPath := spectrum
	if r.Dir != "" && !filepath.IsAbs(spectrum) {
		abs, err := filepath.Abs(spectrum)
		if err != nil {
			return "", fmt.Errorf("resolve spectrum path: %w", err)
		}
		specPath = abs
	}

	argv, err := r.Argv(specPath, args)
	if err != nil {
		return "", err
	}

	out := r.ReportPath(spectrum)
	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove stale report %s: %w", out, err)
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.command(), argv...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logf(name, "exec %s %s", r.command(), strings.Join(argv, " "))
	start := time.Now()
	runErr := cmd.Run()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("classifier timed out after %s: %w", r.Timeout, runCtx.Err())
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return "", fmt.Errorf("%w: start %s: %v", apperr.ErrClassifierUnavailable, r.command(), runErr)
		}
		logf(name, "exited with %v: %s", runErr, lastLine(stderr.String(), stdout.String()))
	}
	logf(name, "finished in %s", time.Since(start).Round(time.Millisecond))

	if _, err := os.Stat(out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logf(name, "no report at %s", out)
			return "", ErrNoReport
		}
		return "", fmt.Errorf("stat report: %w", err)
	}
	return out, nil
}

// lastLine returns the last non-empty line of the first non-empty output.
func lastLine(outputs ...string) string {
	for _, o := range outputs {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if i := strings.LastIndexByte(o, '\n'); i >= 0 {
			return strings.TrimSpace(o[i+1:])
		}
		return o
	}
	return "(no output)"
}
