package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// spinnerFrames defines the spinner animation frames
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TaskStatus represents the status of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
	TaskSkipped
)

// Task represents a single task in the workflow
type Task struct {
	Name    string
	Status  TaskStatus
	Message string
	Details string // Additional details shown when complete
}

// Workflow manages a list of tasks with visual progress.
// When animation is off only the final state is written, which keeps
// piped output free of cursor movement codes.
type Workflow struct {
	writer     io.Writer
	tasks      []*Task
	mu         sync.Mutex
	spinnerIdx int
	stopChan   chan struct{}
	doneChan   chan struct{}
	running    bool
	animated   bool
	title      string
	lastRender string
}

// NewWorkflow creates a new workflow tracker
func NewWorkflow(w io.Writer, title string) *Workflow {
	return &Workflow{
		writer:   w,
		title:    title,
		tasks:    make([]*Task, 0),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		animated: true,
	}
}

// SetAnimated toggles the spinner redraw loop. Must be called before Start.
func (wf *Workflow) SetAnimated(v bool) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.animated = v
}

// AddTask adds a new task to the workflow
func (wf *Workflow) AddTask(name string) int {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	wf.tasks = append(wf.tasks, &Task{Name: name, Status: TaskPending})
	return len(wf.tasks) - 1
}

func (wf *Workflow) update(idx int, fn func(*Task)) {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	if idx >= 0 && idx < len(wf.tasks) {
		fn(wf.tasks[idx])
	}
}

// StartTask marks a task as running
func (wf *Workflow) StartTask(idx int, message string) {
	wf.update(idx, func(t *Task) {
		t.Status = TaskRunning
		t.Message = message
	})
}

// CompleteTask marks a task as done
func (wf *Workflow) CompleteTask(idx int, details string) {
	wf.update(idx, func(t *Task) {
		t.Status = TaskDone
		t.Details = details
	})
}

// FailTask marks a task as failed
func (wf *Workflow) FailTask(idx int, errMsg string) {
	wf.update(idx, func(t *Task) {
		t.Status = TaskFailed
		t.Message = errMsg
	})
}

// SkipTask marks a task as skipped
func (wf *Workflow) SkipTask(idx int, reason string) {
	wf.update(idx, func(t *Task) {
		t.Status = TaskSkipped
		t.Message = reason
	})
}

// UpdateMessage updates the message of a running task
func (wf *Workflow) UpdateMessage(idx int, message string) {
	wf.update(idx, func(t *Task) { t.Message = message })
}

// Tasks returns a snapshot of the current task states.
func (wf *Workflow) Tasks() []Task {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	out := make([]Task, len(wf.tasks))
	for i, t := range wf.tasks {
		out[i] = *t
	}
	return out
}

// Start begins the workflow display with animation
func (wf *Workflow) Start() {
	wf.mu.Lock()
	if wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = true
	animated := wf.animated
	if wf.title != "" {
		fmt.Fprintln(wf.writer, Title.Render(wf.title))
	}
	wf.mu.Unlock()

	if !animated {
		close(wf.doneChan)
		return
	}

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		defer close(wf.doneChan)

		for {
			select {
			case <-wf.stopChan:
				return
			case <-ticker.C:
				wf.mu.Lock()
				wf.spinnerIdx = (wf.spinnerIdx + 1) % len(spinnerFrames)
				wf.mu.Unlock()
				wf.render()
			}
		}
	}()
}

// Stop ends the workflow display
func (wf *Workflow) Stop() {
	wf.mu.Lock()
	if !wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = false
	wf.mu.Unlock()

	close(wf.stopChan)
	<-wf.doneChan
	wf.renderFinal()
}

// clearLast returns the escape sequence that erases the previous frame.
func (wf *Workflow) clearLast() string {
	if wf.lastRender == "" {
		return ""
	}
	lineCount := strings.Count(wf.lastRender, "\n") + 1
	return strings.Repeat("\033[A\033[K", lineCount)
}

// render displays the current state (during animation)
func (wf *Workflow) render() {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	var b strings.Builder
	b.WriteString(wf.clearLast())
	for _, task := range wf.tasks {
		b.WriteString(wf.renderTask(task))
		b.WriteString("\n")
	}

	output := b.String()
	wf.lastRender = strings.TrimSuffix(output, "\n")
	fmt.Fprint(wf.writer, output)
}

// renderFinal renders the final state without animation
func (wf *Workflow) renderFinal() {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	var b strings.Builder
	b.WriteString(wf.clearLast())
	for _, task := range wf.tasks {
		b.WriteString(wf.renderTaskFinal(task))
		b.WriteString("\n")
	}
	wf.lastRender = ""
	fmt.Fprint(wf.writer, b.String())
}

func (wf *Workflow) renderTask(task *Task) string {
	var icon string
	var nameStyle styleWrapper
	var msgStyle styleWrapper

	switch task.Status {
	case TaskPending:
		icon = Muted.Render("○")
		nameStyle = StepPending
		msgStyle = Dim
	case TaskRunning:
		icon = Secondary.Render(spinnerFrames[wf.spinnerIdx])
		nameStyle = StepRunning
		msgStyle = Secondary
	case TaskDone:
		icon = GetCheckMark()
		nameStyle = StepComplete
		msgStyle = Dim
	case TaskFailed:
		icon = GetCrossMark()
		nameStyle = StepFailed
		msgStyle = Error
	case TaskSkipped:
		icon = Warning.Render("⊘")
		nameStyle = StepSkipped
		msgStyle = Warning
	}

	line := fmt.Sprintf("%s %s", icon, nameStyle.Render(task.Name))
	if task.Message != "" {
		line += " " + msgStyle.Render(task.Message)
	}
	return line
}

func (wf *Workflow) renderTaskFinal(task *Task) string {
	var icon string
	var nameStyle styleWrapper

	switch task.Status {
	case TaskPending, TaskRunning:
		icon = Muted.Render("○")
		nameStyle = StepPending
	case TaskDone:
		icon = GetCheckMark()
		nameStyle = StepComplete
	case TaskFailed:
		icon = GetCrossMark()
		nameStyle = StepFailed
	case TaskSkipped:
		icon = Warning.Render("⊘")
		nameStyle = StepSkipped
	}

	line := fmt.Sprintf("%s %s", icon, nameStyle.Render(task.Name))

	switch {
	case task.Status == TaskDone && task.Details != "":
		line += " " + Dim.Render("→ "+task.Details)
	case task.Status == TaskFailed && task.Message != "":
		line += " " + Error.Render("→ "+task.Message)
	case task.Status == TaskSkipped && task.Message != "":
		line += " " + Warning.Render("→ "+task.Message)
	}
	return line
}
