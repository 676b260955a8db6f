package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/idlab-discover/snidpipe/internal/scanner"
	"github.com/idlab-discover/snidpipe/internal/stage"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	levelQuiet    = "quiet"
	levelStandard = "standard"
	levelDebug    = "debug"
)

// logLevel resolves <command>.log-level from config, env or flag.
func logLevel(command string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(viper.GetString(command + ".log-level")))
	if level == "" {
		level = levelStandard
	}
	switch level {
	case levelQuiet, levelStandard, levelDebug:
		return level, nil
	default:
		return "", apperr.Userf("invalid --log-level %q (expected quiet|standard|debug)", level)
	}
}

// wireLogging routes package logs to w in debug mode. The returned func
// detaches them again.
func wireLogging(level string, w io.Writer) func() {
	if level != levelDebug {
		return func() {}
	}
	classifier.SetLogger(w)
	report.SetLogger(w)
	stage.SetLogger(w)
	pipeline.SetLogger(w)
	scanner.SetLogger(w)
	return func() {
		classifier.SetLogger(nil)
		report.SetLogger(nil)
		stage.SetLogger(nil)
		pipeline.SetLogger(nil)
		scanner.SetLogger(nil)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// addPolicyFlags registers the flags shared by classify and batch.
func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("rlap-strict", pipeline.DefaultRLAPs[0], "rlap threshold for the first type/subtype attempt")
	cmd.Flags().Float64("rlap-loose", pipeline.DefaultRLAPs[1], "rlap threshold for the retry")
	cmd.Flags().Float64("z-tol", classifier.DefaultZTol, "Redshift tolerance passed as zfilter")
	cmd.Flags().String("zmin", "0", "Lower redshift bound for type, subtype and redshift (\"none\" disables)")
	cmd.Flags().String("zmax", "0.5", "Upper redshift bound for type, subtype and redshift (\"none\" disables)")
	cmd.Flags().Bool("relax-age", false, "Accept the age regardless of its error")
	cmd.Flags().Duration("timeout", 0, "Limit for one SNID invocation (0 waits indefinitely)")
	cmd.Flags().String("log-level", "", "Log level: quiet|standard|debug")
}

// bindFlags binds every listed flag to <command>.<flag>.
func bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		viper.BindPFlag(cmd.Name()+"."+name, cmd.Flags().Lookup(name))
	}
}

var policyFlags = []string{"rlap-strict", "rlap-loose", "z-tol", "zmin", "zmax", "relax-age", "timeout", "log-level"}

// pipelineOptions builds pipeline options from <command>.* settings.
func pipelineOptions(command string) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.Command = snidCommand()

	strict := viper.GetFloat64(command + ".rlap-strict")
	loose := viper.GetFloat64(command + ".rlap-loose")
	if strict < 0 || loose < 0 {
		return opts, apperr.Userf("rlap thresholds must not be negative (got %g, %g)", strict, loose)
	}
	if loose > strict {
		return opts, apperr.Userf("--rlap-loose %g is stricter than --rlap-strict %g", loose, strict)
	}
	opts.RLAPs = [2]float64{strict, loose}

	opts.ZTol = viper.GetFloat64(command + ".z-tol")
	if opts.ZTol <= 0 {
		return opts, apperr.Userf("--z-tol must be positive (got %g)", opts.ZTol)
	}

	var err error
	if opts.ZMin, err = classifier.ParseNumber(viper.GetString(command + ".zmin")); err != nil {
		return opts, apperr.Userf("--zmin: %v", err)
	}
	if opts.ZMax, err = classifier.ParseNumber(viper.GetString(command + ".zmax")); err != nil {
		return opts, apperr.Userf("--zmax: %v", err)
	}
	if lo, ok := opts.ZMin.Get(); ok {
		if hi, ok := opts.ZMax.Get(); ok && lo > hi {
			return opts, apperr.Userf("--zmin %g is greater than --zmax %g", lo, hi)
		}
	}

	opts.RelaxAge = viper.GetBool(command + ".relax-age")
	opts.Timeout = viper.GetDuration(command + ".timeout")
	if opts.Timeout < 0 {
		return opts, apperr.Userf("--timeout must not be negative")
	}
	return opts, nil
}

// resultView maps a pipeline result to its display form.
func resultView(r pipeline.Result) ui.ResultView {
	v := ui.ResultView{
		Spectrum:      r.Spectrum,
		RunID:         r.RunID,
		Type:          r.Type,
		Subtype:       r.Subtype,
		Redshift:      r.Redshift.Format(4),
		RedshiftError: r.RedshiftError.Format(4),
		Age:           r.Age.Format(1),
		AgeError:      r.AgeError.Format(1),
		GoodMatches:   r.GoodMatches,
		Err:           r.Err,
	}
	if r.BestTemplate != nil {
		v.BestTemplate = fmt.Sprintf("%s %s rlap=%.1f", r.BestTemplate.SN, r.BestTemplate.Type, r.BestTemplate.RLAP)
	}
	return v
}

// stageIndex maps a pipeline stage to its workflow task.
func stageIndex(name string) int {
	switch name {
	case pipeline.StageSubtype:
		return ui.StageSubtype
	case pipeline.StageRedshift:
		return ui.StageRedshift
	case pipeline.StageAge:
		return ui.StageAge
	default:
		return ui.StageType
	}
}

// plainSummary is the single-line, unstyled form of a result.
func plainSummary(r pipeline.Result) string {
	field := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	}
	return fmt.Sprintf("Spectrum: %s | Type: %s | Subtype: %s | z: %s +/- %s | Age: %s +/- %s",
		r.Spectrum, field(r.Type), field(r.Subtype),
		r.Redshift, r.RedshiftError, r.Age, r.AgeError)
}
