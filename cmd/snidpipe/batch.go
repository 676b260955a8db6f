package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/idlab-discover/snidpipe/internal/apperr"
	snidio "github.com/idlab-discover/snidpipe/internal/io"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	"github.com/idlab-discover/snidpipe/internal/scanner"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultBatchOutput = "dist/snid-results.json"

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Classify every spectrum in a manifest or directory",
	Long: `Reads a YAML or JSON manifest of spectra, or scans --dir for spectrum files
(.flm, .dat, .ascii, .txt, .spec), and runs the full pipeline on each, several
at a time. Each spectrum runs in its own directory under --work-dir so
SNID reports never collide. A failure on one spectrum is recorded in its result
and does not stop the others.

Manifest:
  base_dir: spectra
  spectra:
    - file: sn2011fe.flm
      redshift: 0.0008
    - file: sn1994D.dat
      path: nearby`,
	Annotations: map[string]string{annotationNeedsSNID: "true"},
	RunE:        runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	level, err := logLevel("batch")
	if err != nil {
		return err
	}
	quiet := level == levelQuiet
	detach := wireLogging(level, cmd.ErrOrStderr())
	defer detach()

	refs, err := batchRefs(viper.GetString("batch.manifest"), viper.GetString("batch.dir"), viper.GetString("batch.base-dir"))
	if err != nil {
		return err
	}

	opts, err := pipelineOptions("batch")
	if err != nil {
		return err
	}

	output := viper.GetString("batch.output")
	if output == "" {
		output = defaultBatchOutput
	}
	format, err := snidio.ResolveFormat(output, viper.GetString("batch.format"))
	if err != nil {
		return apperr.Userf("%v", err)
	}
	if err := confirmOverwrite(cmd, output, viper.GetBool("batch.force")); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name()
	}

	var tracker *ui.ProgressTracker
	if !quiet && isTerminal(out) {
		tracker = ui.NewProgressTracker(out, fmt.Sprintf("Classifying %d spectra", len(refs)), names)
		tracker.Start()
	}
	opts.OnProgress = batchProgress(out, tracker, quiet)

	start := time.Now()
	results, runErr := pipeline.New(opts).Batch(cmd.Context(), refs, pipeline.BatchOptions{
		Workers:  viper.GetInt("batch.workers"),
		WorkRoot: viper.GetString("batch.work-dir"),
	})
	if tracker != nil {
		tracker.Complete(runErr)
	}

	// Partial results are still written when the batch was interrupted.
	if err := snidio.WriteResults(results, output, format); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if !quiet {
		views := make([]ui.ResultView, len(results))
		for i, r := range results {
			views[i] = resultView(r)
		}
		fmt.Fprintln(out)
		ui.PrintBatchSummary(out, views, output, time.Since(start))
	}
	return nil
}

// batchRefs loads the spectra from a manifest or by scanning a directory.
func batchRefs(manifestPath, dir, baseDir string) ([]pipeline.SpectrumRef, error) {
	switch {
	case manifestPath != "" && dir != "":
		return nil, apperr.User("use either --manifest or --dir, not both")
	case dir != "":
		refs, err := scanner.Scan(dir)
		if err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			return nil, apperr.Userf("no spectra found under %s", dir)
		}
		return refs, nil
	case manifestPath == "":
		return nil, apperr.User("--manifest or --dir is required")
	}

	manifest, err := snidio.ReadManifest(manifestPath, "")
	if err != nil {
		return nil, err
	}
	refs := manifest.Refs(baseDir)
	if len(refs) == 0 {
		return nil, apperr.Userf("manifest %s lists no spectra", manifestPath)
	}
	return refs, nil
}

// confirmOverwrite asks before replacing an existing output file. Without a
// terminal on stdin it requires --force.
func confirmOverwrite(cmd *cobra.Command, output string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(output); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if !isTerminal(os.Stdin) {
		return apperr.Userf("%s already exists; pass --force to overwrite it", output)
	}

	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Overwrite results?").
				Description(fmt.Sprintf("%s already exists.", output)).
				Value(&confirm).
				Affirmative("Yes").
				Negative("No"),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return apperr.ErrCancelled
		}
		return err
	}
	if !confirm {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.GetWarnMark(), "Batch cancelled; existing results kept.")
		return apperr.ErrCancelled
	}
	return nil
}

// batchProgress updates the tracker, or prints one line per finished spectrum
// when there is no terminal to animate.
func batchProgress(w io.Writer, tracker *ui.ProgressTracker, quiet bool) pipeline.ProgressCallback {
	var mu sync.Mutex
	return func(ev pipeline.ProgressEvent) {
		if tracker != nil {
			switch ev.Type {
			case pipeline.EventSpectrumStart:
				tracker.UpdateStep(ev.Index, ui.StatusRunning, "")
			case pipeline.EventStageStart, pipeline.EventStageRetry:
				msg := ev.Stage
				if ev.Type == pipeline.EventStageRetry {
					msg += fmt.Sprintf(" (retry, rlap ≥ %g)", ev.RLAP)
				}
				tracker.UpdateStep(ev.Index, ui.StatusRunning, msg)
			case pipeline.EventSpectrumComplete:
				status, msg := spectrumStatus(ev)
				tracker.UpdateStep(ev.Index, status, msg)
			}
			return
		}
		if quiet || ev.Type != pipeline.EventSpectrumComplete {
			return
		}
		status, msg := spectrumStatus(ev)
		mark := ui.GetCheckMark()
		switch status {
		case ui.StatusFailed:
			mark = ui.GetCrossMark()
		case ui.StatusSkipped:
			mark = ui.GetWarnMark()
		}
		mu.Lock()
		fmt.Fprintf(w, "  %s [%d/%d] %s %s\n", mark, ev.Index+1, ev.Total, ui.Highlight.Render(ev.Spectrum), ui.Dim.Render("→ "+msg))
		mu.Unlock()
	}
}

func spectrumStatus(ev pipeline.ProgressEvent) (ui.StepStatus, string) {
	if ev.Error != nil {
		return ui.StatusFailed, ev.Error.Error()
	}
	if ev.Result == nil || !ev.Result.Determined() {
		return ui.StatusSkipped, "type undetermined"
	}
	label := ev.Result.Type
	if ev.Result.Subtype != "" {
		label = ev.Result.Subtype
	}
	if z, ok := ev.Result.Redshift.Get(); ok {
		label += fmt.Sprintf(" z=%.4f", z)
	}
	return ui.StatusComplete, label
}

func init() {
	batchCmd.Flags().StringP("manifest", "m", "", "Manifest listing the spectra (.yaml, .yml or .json)")
	batchCmd.Flags().StringP("dir", "d", "", "Scan this directory for spectra instead of reading a manifest")
	batchCmd.Flags().String("base-dir", "", "Directory spectra paths are relative to (overrides the manifest's base_dir)")
	batchCmd.Flags().IntP("workers", "w", 0, "Spectra classified at the same time (default: number of CPUs)")
	batchCmd.Flags().String("work-dir", "", "Root of the per-spectrum SNID working directories (default: a new temporary directory)")
	batchCmd.Flags().StringP("output", "o", "", "Results file (default "+defaultBatchOutput+")")
	batchCmd.Flags().StringP("format", "f", "", "Output format: json|yaml|auto")
	batchCmd.Flags().Bool("force", false, "Overwrite the results file without asking")
	addPolicyFlags(batchCmd)

	// Bind all flags to viper for config file support
	bindFlags(batchCmd, "manifest", "dir", "base-dir", "workers", "work-dir", "output", "format", "force")
	bindFlags(batchCmd, policyFlags...)
}
