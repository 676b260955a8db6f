package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// StepStatus represents the status of a step
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusRunning
	StatusComplete
	StatusFailed
	StatusSkipped
)

// Step represents a single spectrum in the batch progress
type Step struct {
	Name    string
	Status  StepStatus
	Message string
}

// maxFinishedShown bounds how many finished spectra stay on screen.
const maxFinishedShown = 5

// ProgressModel is the Bubble Tea model for batch progress display
type ProgressModel struct {
	spinner  spinner.Model
	steps    []Step
	finished []int
	title    string
	done     bool
	err      error
	quitting bool
}

// NewProgressModel creates a new progress model with one step per name
func NewProgressModel(title string, names []string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Name: name, Status: StatusPending}
	}
	return ProgressModel{spinner: s, steps: steps, title: title}
}

// Init initializes the model
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// ProgressMsg is sent to update progress
type ProgressMsg struct {
	StepIndex int
	Status    StepStatus
	Message   string
}

// DoneMsg signals that the operation is complete
type DoneMsg struct {
	Err error
}

// Update handles messages
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ProgressMsg:
		if msg.StepIndex >= 0 && msg.StepIndex < len(m.steps) {
			step := &m.steps[msg.StepIndex]
			step.Status = msg.Status
			step.Message = msg.Message
			if msg.Status == StatusComplete || msg.Status == StatusFailed || msg.Status == StatusSkipped {
				m.finished = append(m.finished, msg.StepIndex)
			}
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// Counts returns how many steps finished and how many failed.
func (m ProgressModel) Counts() (finished, failed int) {
	for _, s := range m.steps {
		switch s.Status {
		case StatusComplete, StatusSkipped:
			finished++
		case StatusFailed:
			finished++
			failed++
		}
	}
	return finished, failed
}

// View renders the progress display
func (m ProgressModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(Title.Render(m.title))
		b.WriteString("\n\n")
	}

	finished, failed := m.Counts()
	counter := fmt.Sprintf("%d/%d spectra", finished, len(m.steps))
	if failed > 0 {
		counter += Error.Render(fmt.Sprintf(" (%d failed)", failed))
	}
	b.WriteString(Dim.Render(counter))
	b.WriteString("\n")

	start := 0
	if len(m.finished) > maxFinishedShown {
		start = len(m.finished) - maxFinishedShown
	}
	for _, idx := range m.finished[start:] {
		b.WriteString(m.renderStep(m.steps[idx]))
		b.WriteString("\n")
	}
	for _, step := range m.steps {
		if step.Status == StatusRunning {
			b.WriteString(m.renderStep(step))
			b.WriteString("\n")
		}
	}

	if m.done {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(ErrorBox.Render(GetCrossMark() + " " + m.err.Error()))
		} else {
			b.WriteString(Success.Render(fmt.Sprintf("✓ Processed %d/%d spectra", finished, len(m.steps))))
		}
	}

	return tea.NewView(b.String())
}

func (m ProgressModel) renderStep(step Step) string {
	var icon string
	var style styleWrapper

	switch step.Status {
	case StatusPending:
		icon = Muted.Render("○")
		style = StepPending
	case StatusRunning:
		icon = m.spinner.View()
		style = StepRunning
	case StatusComplete:
		icon = GetCheckMark()
		style = StepComplete
	case StatusFailed:
		icon = GetCrossMark()
		style = StepFailed
	case StatusSkipped:
		icon = Warning.Render("⊘")
		style = StepSkipped
	}

	line := fmt.Sprintf("%s %s", icon, style.Render(step.Name))
	if step.Message != "" {
		line += Dim.Render(" → " + step.Message)
	}
	return line
}

// ProgressTracker provides a simple interface for tracking batch progress
// without directly using Bubble Tea in the calling code. It is safe for
// concurrent use by batch workers.
type ProgressTracker struct {
	program *tea.Program
	title   string
	names   []string
	output  io.Writer
	mu      sync.Mutex
	running bool
	exited  chan struct{}
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(w io.Writer, title string, names []string) *ProgressTracker {
	return &ProgressTracker{title: title, names: names, output: w}
}

// Start begins the progress display
func (pt *ProgressTracker) Start() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.running {
		return
	}

	model := NewProgressModel(pt.title, pt.names)
	pt.program = tea.NewProgram(model,
		tea.WithoutSignalHandler(),
		tea.WithOutput(pt.output),
	)
	pt.running = true
	pt.exited = make(chan struct{})

	go func() {
		defer close(pt.exited)
		pt.program.Run()
	}()
}

// UpdateStep updates a specific step's status
func (pt *ProgressTracker) UpdateStep(index int, status StepStatus, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.program == nil || !pt.running {
		return
	}
	pt.program.Send(ProgressMsg{StepIndex: index, Status: status, Message: message})
}

// Complete marks the progress as complete and waits for the final frame
func (pt *ProgressTracker) Complete(err error) {
	pt.mu.Lock()
	if pt.program == nil || !pt.running {
		pt.mu.Unlock()
		return
	}
	pt.running = false
	pt.program.Send(DoneMsg{Err: err})
	pt.mu.Unlock()

	<-pt.exited
}

// Stop stops the progress display without marking complete
func (pt *ProgressTracker) Stop() {
	pt.mu.Lock()
	if pt.program == nil || !pt.running {
		pt.mu.Unlock()
		return
	}
	pt.running = false
	pt.program.Quit()
	pt.mu.Unlock()

	<-pt.exited
}
