package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	"github.com/idlab-discover/snidpipe/internal/classifier"
	snidio "github.com/idlab-discover/snidpipe/internal/io"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify [spectrum]",
	Short: "Determine type, subtype, redshift and age of one spectrum",
	Long: `Runs SNID up to six times on one spectrum: type and subtype at a strict and
then a loose rlap threshold, redshift restricted to the best label found, and age
at the resulting redshift. Stages that cannot be decided are reported as unknown.

Example:
  snidpipe classify --spectrum data/sn2011fe.flm --redshift 0.0008
  snidpipe classify data/sn1994D.dat --output dist/sn1994D.json`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationNeedsSNID: "true"},
	RunE:        runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	level, err := logLevel("classify")
	if err != nil {
		return err
	}
	quiet := level == levelQuiet
	plain := viper.GetBool("classify.plain-summary")

	spectrum := viper.GetString("classify.spectrum")
	if spectrum == "" && len(args) == 1 {
		spectrum = args[0]
	}
	if spectrum == "" {
		return apperr.User("a spectrum is required: pass --spectrum or a positional argument")
	}

	z, err := classifier.ParseNumber(viper.GetString("classify.redshift"))
	if err != nil {
		return apperr.Userf("--redshift: %v", err)
	}

	opts, err := pipelineOptions("classify")
	if err != nil {
		return err
	}
	opts.WorkDir = viper.GetString("classify.work-dir")

	output := viper.GetString("classify.output")
	format := ""
	if output != "" {
		if format, err = snidio.ResolveFormat(output, viper.GetString("classify.format")); err != nil {
			return apperr.Userf("%v", err)
		}
	}

	detach := wireLogging(level, cmd.ErrOrStderr())
	defer detach()

	out := cmd.OutOrStdout()
	cui := ui.NewClassifyUI(out, quiet || plain, isTerminal(out))
	opts.OnProgress = classifyProgress(cui)

	ref := pipeline.SpectrumRef{File: filepath.Base(spectrum), Dir: filepath.Dir(spectrum), Redshift: z}
	cui.StartWorkflow(ref.Name())
	res, err := pipeline.New(opts).Classify(cmd.Context(), ref)
	cui.FinishWorkflow()
	if err != nil {
		return err
	}

	if output != "" {
		if err := snidio.WriteResults([]pipeline.Result{res}, output, format); err != nil {
			return err
		}
	}

	if plain {
		fmt.Fprintln(out, plainSummary(res))
		return nil
	}
	cui.PrintResult(resultView(res))
	if output != "" && !quiet {
		fmt.Fprintf(out, "%s %s\n", ui.GetCheckMark(), ui.Dim.Render("Wrote "+output))
	}
	return nil
}

// classifyProgress maps pipeline events onto the stage workflow.
func classifyProgress(cui *ui.ClassifyUI) pipeline.ProgressCallback {
	return func(ev pipeline.ProgressEvent) {
		idx := stageIndex(ev.Stage)
		switch ev.Type {
		case pipeline.EventStageStart:
			msg := ev.Message
			if ev.RLAP > 0 {
				msg = fmt.Sprintf("rlap ≥ %g", ev.RLAP)
			}
			cui.StageStart(idx, msg)
		case pipeline.EventStageRetry:
			cui.StageRetry(idx, fmt.Sprintf("retrying at rlap ≥ %g", ev.RLAP))
		case pipeline.EventStageDetermined:
			cui.StageDone(idx, ev.Message)
		case pipeline.EventStageUndetermined:
			cui.StageUndetermined(idx, "undetermined")
		case pipeline.EventStageSkipped:
			cui.StageUndetermined(idx, "not attempted")
		case pipeline.EventError:
			cui.StageFailed(idx, ev.Error.Error())
		}
	}
}

func init() {
	classifyCmd.Flags().StringP("spectrum", "s", "", "Path to the spectrum file")
	classifyCmd.Flags().StringP("redshift", "z", "", "Known redshift (forces z for every stage); empty or \"unknown\" leaves it free")
	classifyCmd.Flags().String("work-dir", "", "Directory SNID runs in and writes its report to (default: current directory)")
	classifyCmd.Flags().StringP("output", "o", "", "Write the result to this file (.json or .yaml)")
	classifyCmd.Flags().StringP("format", "f", "", "Output format: json|yaml|auto")
	classifyCmd.Flags().Bool("plain-summary", false, "Print a single-line plain summary (no styling)")
	addPolicyFlags(classifyCmd)

	// Bind all flags to viper for config file support
	bindFlags(classifyCmd, "spectrum", "redshift", "work-dir", "output", "format", "plain-summary")
	bindFlags(classifyCmd, policyFlags...)
}
