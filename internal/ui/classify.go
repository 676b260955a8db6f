package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Stage task indices in the classify workflow.
const (
	StageType = iota
	StageSubtype
	StageRedshift
	StageAge
)

var stageNames = []string{"Type", "Subtype", "Redshift", "Age"}

// ResultView mirrors pipeline.Result with display-ready values
// to avoid circular imports. Empty strings mean undetermined.
type ResultView struct {
	Spectrum      string
	RunID         string
	Type          string
	Subtype       string
	Redshift      string
	RedshiftError string
	Age           string
	AgeError      string
	BestTemplate  string
	GoodMatches   int
	Err           string
}

// Determined reports whether at least the type was found.
func (r ResultView) Determined() bool { return r.Type != "" }

// ClassifyUI provides the stage display for the classify command
type ClassifyUI struct {
	writer    io.Writer
	quiet     bool
	animated  bool
	workflow  *Workflow
	startTime time.Time
}

// NewClassifyUI creates a new UI handler for the classify command.
// animated should be false when the writer is not a terminal.
func NewClassifyUI(w io.Writer, quiet, animated bool) *ClassifyUI {
	return &ClassifyUI{
		writer:    w,
		quiet:     quiet,
		animated:  animated,
		startTime: time.Now(),
	}
}

// StartWorkflow initializes and displays one task per pipeline stage
func (c *ClassifyUI) StartWorkflow(spectrum string) {
	if c.quiet {
		return
	}
	c.startTime = time.Now()
	c.workflow = NewWorkflow(c.writer, "Classifying "+spectrum)
	c.workflow.SetAnimated(c.animated)
	for _, name := range stageNames {
		c.workflow.AddTask(name)
	}
	c.workflow.Start()
}

// StageStart marks a stage as running
func (c *ClassifyUI) StageStart(stage int, message string) {
	if c.quiet || c.workflow == nil {
		return
	}
	c.workflow.StartTask(stage, Dim.Render(message))
}

// StageRetry updates a running stage after the strict attempt failed
func (c *ClassifyUI) StageRetry(stage int, message string) {
	if c.quiet || c.workflow == nil {
		return
	}
	c.workflow.UpdateMessage(stage, Warning.Render(message))
}

// StageDone marks a stage as determined
func (c *ClassifyUI) StageDone(stage int, details string) {
	if c.quiet || c.workflow == nil {
		return
	}
	c.workflow.CompleteTask(stage, details)
}

// StageUndetermined marks a stage that ran but could not decide
func (c *ClassifyUI) StageUndetermined(stage int, reason string) {
	if c.quiet || c.workflow == nil {
		return
	}
	c.workflow.SkipTask(stage, reason)
}

// StageFailed marks a stage as failed
func (c *ClassifyUI) StageFailed(stage int, err string) {
	if c.quiet || c.workflow == nil {
		return
	}
	c.workflow.FailTask(stage, err)
}

// FinishWorkflow marks untouched stages as not attempted and stops the display
func (c *ClassifyUI) FinishWorkflow() {
	if c.quiet || c.workflow == nil {
		return
	}
	for i, t := range c.workflow.Tasks() {
		if t.Status == TaskPending {
			c.workflow.SkipTask(i, "not attempted")
		}
	}
	c.workflow.Stop()
}

// PrintResult renders the classification result in a box
func (c *ClassifyUI) PrintResult(r ResultView) {
	if c.quiet {
		return
	}

	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, RenderResult(r, time.Since(c.startTime)))
}

// RenderResult formats a result box. A zero elapsed duration is not shown.
func RenderResult(r ResultView, elapsed time.Duration) string {
	var b strings.Builder

	if r.Determined() {
		b.WriteString(Success.Bold(true).Render("Classification Complete"))
	} else {
		b.WriteString(Warning.Bold(true).Render("Type Undetermined"))
	}
	b.WriteString("\n\n")

	b.WriteString(FormatKeyValue("Spectrum", Highlight.Render(r.Spectrum)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Type", orDash(r.Type)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Subtype", orDash(r.Subtype)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Redshift", withError(r.Redshift, r.RedshiftError)))
	b.WriteString("\n")
	b.WriteString(FormatKeyValue("Age", withError(r.Age, r.AgeError)))
	if r.BestTemplate != "" {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Best template", fmt.Sprintf("%s (%d good)", r.BestTemplate, r.GoodMatches)))
	}
	if r.RunID != "" {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Run", Muted.Render(r.RunID)))
	}
	if elapsed > 0 {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Duration", elapsed.Round(time.Millisecond).String()))
	}

	if r.Err != "" {
		b.WriteString("\n")
		b.WriteString(FormatKeyValue("Error", Error.Render(r.Err)))
		return ErrorBox.Render(b.String())
	}
	if !r.Determined() {
		return WarningBox.Render(b.String())
	}
	return SuccessBox.Render(b.String())
}

func orDash(s string) string {
	if s == "" {
		return Muted.Render("-")
	}
	return s
}

func withError(v, e string) string {
	if v == "" {
		return Muted.Render("-")
	}
	if e == "" {
		return v
	}
	return v + Dim.Render(" ± "+e)
}
