// Package tui renders a running program as a live terminal dashboard.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/run"
	"github.com/metalagman/robolab/internal/world"
)

// Handle is the part of a run the dashboard needs.
type Handle interface {
	Wait() run.Result
	Cancel()
}

type stateMsg model.RobotState

type doneMsg run.Result

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(10)
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the bubbletea model of the dashboard.
type Model struct {
	title    string
	graded   bool
	layout   world.Layout
	updates  <-chan model.RobotState
	handle   Handle
	spinner  spinner.Model
	state    model.RobotState
	readings world.Readings
	result   *run.Result
	quitting bool
}

// New builds a dashboard for h. updates is a state subscription; graded
// tells whether the run is evaluated against a scenario.
func New(title string, graded bool, layout world.Layout, initial model.RobotState, updates <-chan model.RobotState, h Handle) Model {
	m := Model{
		title:   title,
		graded:  graded,
		layout:  layout,
		updates: updates,
		handle:  h,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	return m.withState(initial)
}

// Result returns the run result once the run has finished.
func (m Model) Result() (run.Result, bool) {
	if m.result == nil {
		return run.Result{}, false
	}
	return *m.result, true
}

func (m Model) withState(s model.RobotState) Model {
	m.state = s
	m.readings = world.Sense(s.X, s.Z, s.Rotation, m.layout)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitState(m.updates), waitDone(m.handle))
}

func waitState(ch <-chan model.RobotState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func waitDone(h Handle) tea.Cmd {
	return func() tea.Msg {
		return doneMsg(h.Wait())
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.quitting {
				m.quitting = true
				m.handle.Cancel()
			}
		}
		return m, nil
	case stateMsg:
		return m.withState(model.RobotState(msg)), waitState(m.updates)
	case doneMsg:
		res := run.Result(msg)
		m.result = &res
		m = m.withState(res.End)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	s := m.state
	row(&b, "position", fmt.Sprintf("x %.2f  y %.2f  z %.2f", s.X, s.Y, s.Z))
	row(&b, "heading", fmt.Sprintf("%.1f°", s.Rotation))
	row(&b, "speed", fmt.Sprintf("%d", s.Speed))
	row(&b, "leds", led(s.LEDLeftColor)+" "+led(s.LEDRightColor))

	r := m.readings
	row(&b, "gyro", fmt.Sprintf("%d", r.Gyro))
	row(&b, "touch", fmt.Sprintf("%t", r.Touch))
	row(&b, "distance", r.DistanceLabel())
	row(&b, "color", r.Color)

	var status string
	switch {
	case m.result != nil:
		status = verdict(*m.result, m.graded)
	case m.quitting:
		status = m.spinner.View() + " stopping"
	case s.IsMoving:
		status = m.spinner.View() + " moving"
	default:
		status = m.spinner.View() + " running"
	}
	return boxStyle.Render(b.String()+"\n"+status) + "\n"
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func led(token string) string {
	style := lipgloss.NewStyle()
	if raw, ok := world.ParseColor(token); ok {
		style = style.Foreground(lipgloss.Color(world.HexColor(raw)))
	}
	return style.Render("●") + " " + token
}

func verdict(res run.Result, graded bool) string {
	switch res.Status {
	case model.StatusAborted:
		return failStyle.Render("aborted")
	case model.StatusFailed:
		return failStyle.Render("failed: " + res.Fault)
	}
	if !graded {
		return passStyle.Render("completed")
	}
	if res.Success {
		return passStyle.Render("challenge passed")
	}
	return failStyle.Render("challenge not passed")
}

// Run shows the dashboard on out until the run finishes and returns the
// final model.
func Run(m Model, in io.Reader, out io.Writer) (Model, error) {
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}
