package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

// TableView is a titled grid of pre-formatted cells.
type TableView struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Emphasize, when set, highlights rows for which it returns true.
	Emphasize func(row int) bool
}

// RenderTable renders a TableView with rounded borders.
func RenderTable(tv TableView) string {
	headerStyle := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
	emphStyle := cellStyle.Foreground(ColorSuccess)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers(tv.Headers...).
		Rows(tv.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if tv.Emphasize != nil && tv.Emphasize(row) {
				return emphStyle
			}
			return cellStyle
		})

	var b strings.Builder
	if tv.Title != "" {
		b.WriteString(SectionHeader.Render(tv.Title))
		b.WriteString("\n")
	}
	if len(tv.Rows) == 0 {
		b.WriteString(Muted.Render("(no rows)"))
		return b.String()
	}
	b.WriteString(t.String())
	return b.String()
}

// ReportUI renders parsed SNID reports for the report command
type ReportUI struct {
	writer io.Writer
	quiet  bool
}

// NewReportUI creates a new UI handler for the report command
func NewReportUI(w io.Writer, quiet bool) *ReportUI {
	return &ReportUI{writer: w, quiet: quiet}
}

// PrintTables writes each table followed by a blank line
func (r *ReportUI) PrintTables(tables ...TableView) {
	if r.quiet {
		return
	}
	for _, tv := range tables {
		fmt.Fprintln(r.writer, RenderTable(tv))
		fmt.Fprintln(r.writer)
	}
}

// PrintVerdicts writes decision lines such as "Type: Ia".
func (r *ReportUI) PrintVerdicts(lines []string) {
	if r.quiet || len(lines) == 0 {
		return
	}
	fmt.Fprintln(r.writer, Box.Render(strings.Join(lines, "\n")))
}

// PrintBatchSummary renders one row per spectrum and a totals box
func PrintBatchSummary(w io.Writer, results []ResultView, output string, elapsed time.Duration) {
	rows := make([][]string, 0, len(results))
	determined, failed := 0, 0
	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != "":
			status = "error"
			failed++
		case r.Determined():
			determined++
		default:
			status = "undetermined"
		}
		rows = append(rows, []string{
			r.Spectrum, dash(r.Type), dash(r.Subtype),
			dash(joinErr(r.Redshift, r.RedshiftError)),
			dash(joinErr(r.Age, r.AgeError)),
			status,
		})
	}

	fmt.Fprintln(w, RenderTable(TableView{
		Title:   "Batch Results",
		Headers: []string{"spectrum", "type", "subtype", "z", "age", "status"},
		Rows:    rows,
		Emphasize: func(row int) bool {
			return row < len(results) && results[row].Determined() && results[row].Err == ""
		},
	}))

	var summary strings.Builder
	summary.WriteString(Success.Bold(true).Render("Batch Complete"))
	summary.WriteString("\n\n")
	summary.WriteString(FormatKeyValue("Spectra", fmt.Sprintf("%d", len(results))))
	summary.WriteString("\n")
	summary.WriteString(FormatKeyValue("Typed", fmt.Sprintf("%d", determined)))
	summary.WriteString("\n")
	summary.WriteString(FormatKeyValue("Errors", fmt.Sprintf("%d", failed)))
	if output != "" {
		summary.WriteString("\n")
		summary.WriteString(FormatKeyValue("Output", output))
	}
	summary.WriteString("\n")
	summary.WriteString(FormatKeyValue("Duration", elapsed.Round(time.Millisecond).String()))

	box := SuccessBox
	if failed > 0 {
		box = WarningBox
	}
	fmt.Fprintln(w, box.Render(summary.String()))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinErr(v, e string) string {
	if v == "" || e == "" {
		return v
	}
	return v + " ± " + e
}
