package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	"github.com/idlab-discover/snidpipe/internal/classifier"
	snidio "github.com/idlab-discover/snidpipe/internal/io"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/idlab-discover/snidpipe/internal/stage"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportCmd = &cobra.Command{
	Use:   "report <file_snid.output>",
	Short: "Show the tables of an existing SNID report",
	Long: `Parses a report SNID already wrote and prints its type and template tables.
With --evaluate the stage decision rules are applied to the report as well:
type, redshift and age always, subtype when --forced-type names the type the
run was restricted to.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

// evaluation is the machine-readable form of the decisions on one report.
type evaluation struct {
	Type          string            `json:"type" yaml:"type"`
	Subtype       string            `json:"subtype,omitempty" yaml:"subtype,omitempty"`
	Redshift      classifier.Number `json:"redshift" yaml:"redshift"`
	RedshiftError classifier.Number `json:"redshift_error" yaml:"redshift_error"`
	Age           classifier.Number `json:"age" yaml:"age"`
	AgeError      classifier.Number `json:"age_error" yaml:"age_error"`
}

type reportDocument struct {
	report.Report `yaml:",inline"`
	Evaluation     *evaluation `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
}

func runReport(cmd *cobra.Command, args []string) error {
	level, err := logLevel("report")
	if err != nil {
		return err
	}
	detach := wireLogging(level, cmd.ErrOrStderr())
	defer detach()

	format := strings.ToLower(strings.TrimSpace(viper.GetString("report.format")))
	output := viper.GetString("report.output")
	switch format {
	case "", "table":
		if output != "" {
			return apperr.User("--output needs --format json or yaml")
		}
		format = "table"
	case "json", "yaml":
	default:
		return apperr.Userf("invalid --format %q (expected table|json|yaml)", format)
	}

	rep, err := report.ReadFile(args[0])
	if err != nil {
		return err
	}

	var ev *evaluation
	if viper.GetBool("report.evaluate") {
		ev = evaluate(rep, viper.GetString("report.forced-type"), viper.GetBool("report.relax-age"))
	}

	if format != "table" {
		doc := reportDocument{Report: *rep, Evaluation: ev}
		if output != "" {
			return snidio.WriteFile(doc, output, format)
		}
		return snidio.Encode(cmd.OutOrStdout(), doc, format)
	}

	rui := ui.NewReportUI(cmd.OutOrStdout(), level == levelQuiet)
	rui.PrintTables(typeTable(rep), templateTable(rep))
	if ev != nil {
		rui.PrintVerdicts(verdictLines(ev, viper.GetString("report.forced-type")))
	}
	return nil
}

func evaluate(rep *report.Report, forced string, relax bool) *evaluation {
	ev := &evaluation{}
	if t, ok := stage.DecideType(rep); ok {
		ev.Type = t.Label
	}
	if forced != "" {
		if sub, ok := stage.DecideSubtype(rep, forced); ok {
			ev.Subtype = sub
		}
	}
	ev.Redshift, ev.RedshiftError = stage.DecideRedshift(rep)
	ev.Age, ev.AgeError = stage.DecideAge(rep, relax)
	return ev
}

func verdictLines(ev *evaluation, forced string) []string {
	unknown := ui.Muted.Render("undetermined")
	or := func(s string) string {
		if s == "" {
			return unknown
		}
		return s
	}
	withErr := func(v, e classifier.Number, prec int) string {
		if !v.Valid() {
			return unknown
		}
		return v.Format(prec) + ui.Dim.Render(" ± "+e.Format(prec))
	}
	lines := []string{ui.FormatKeyValue("Type", or(ev.Type))}
	if forced != "" {
		lines = append(lines, ui.FormatKeyValue("Subtype of "+forced, or(ev.Subtype)))
	}
	return append(lines,
		ui.FormatKeyValue("Redshift", withErr(ev.Redshift, ev.RedshiftError, 4)),
		ui.FormatKeyValue("Age", withErr(ev.Age, ev.AgeError, 1)),
	)
}

func ff(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

func typeTable(rep *report.Report) ui.TableView {
	maxIdx := -1
	for i, t := range rep.Types {
		if maxIdx < 0 || t.Fraction > rep.Types[maxIdx].Fraction {
			maxIdx = i
		}
	}
	rows := make([][]string, 0, len(rep.Types))
	for _, t := range rep.Types {
		rows = append(rows, []string{
			t.Type, strconv.Itoa(t.NTemp), ff(t.Fraction, 3), ff(t.Slope, 3),
			ff(t.Redshift, 4), ff(t.RedshiftError, 4), ff(t.Age, 1), ff(t.AgeError, 1),
		})
	}
	return ui.TableView{
		Title:     fmt.Sprintf("Types (from line %d)", rep.StartLine+1),
		Headers:   report.TypeColumns,
		Rows:      rows,
		Emphasize: func(row int) bool { return row == maxIdx },
	}
}

func templateTable(rep *report.Report) ui.TableView {
	rows := make([][]string, 0, len(rep.Templates))
	for _, t := range rep.Templates {
		age := t.Age.Format(1)
		if age == "" {
			age = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(t.No), t.SN, t.Type, ff(t.Lap, 2), ff(t.RLAP, 2),
			ff(t.Z, 4), ff(t.ZErr, 4), age, strconv.Itoa(t.AgeFlag), string(t.Grade),
		})
	}
	return ui.TableView{
		Title:     fmt.Sprintf("Templates above the rlap cutoff (%d good)", len(rep.Good())),
		Headers:   report.TemplateColumns,
		Rows:      rows,
		Emphasize: func(row int) bool { return row < len(rep.Templates) && rep.Templates[row].Good() },
	}
}

func init() {
	reportCmd.Flags().Bool("evaluate", false, "Apply the stage decision rules to the report")
	reportCmd.Flags().String("forced-type", "", "Type the run was restricted to; enables the subtype decision")
	reportCmd.Flags().Bool("relax-age", false, "Accept the age regardless of its error")
	reportCmd.Flags().StringP("format", "f", "", "Output format: table|json|yaml")
	reportCmd.Flags().StringP("output", "o", "", "Write json/yaml output to this file instead of stdout")
	reportCmd.Flags().String("log-level", "", "Log level: quiet|standard|debug")

	// Bind all flags to viper for config file support
	bindFlags(reportCmd, "evaluate", "forced-type", "relax-age", "format", "output", "log-level")
}
