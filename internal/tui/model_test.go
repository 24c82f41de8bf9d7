package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/run"
	"github.com/metalagman/robolab/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	result    run.Result
	cancelled int
}

func (h *fakeHandle) Wait() run.Result { return h.result }
func (h *fakeHandle) Cancel()          { h.cancelled++ }

func newModel(h *fakeHandle, graded bool) (Model, chan model.RobotState) {
	ch := make(chan model.RobotState, 1)
	return New("demo", graded, world.LayoutFor(""), model.DefaultState(), ch, h), ch
}

func TestModel_StateUpdatesView(t *testing.T) {
	t.Parallel()

	m, ch := newModel(&fakeHandle{}, false)
	assert.Contains(t, m.View(), "180.0°")

	s := model.DefaultState()
	s.X, s.Z, s.Rotation = 1.25, -2.5, 90
	s.LEDLeftColor = "red"
	next, cmd := m.Update(stateMsg(s))
	require.NotNil(t, cmd)

	view := next.View()
	assert.Contains(t, view, "x 1.25")
	assert.Contains(t, view, "z -2.50")
	assert.Contains(t, view, "90.0°")
	assert.Contains(t, view, "red")

	// The returned command waits for the next state.
	ch <- model.DefaultState()
	assert.Equal(t, stateMsg(model.DefaultState()), cmd())
}

func TestModel_ClosedSubscriptionStopsWaiting(t *testing.T) {
	t.Parallel()

	m, ch := newModel(&fakeHandle{}, false)
	close(ch)
	assert.Nil(t, waitState(m.updates)())
}

func TestModel_DoneQuitsWithVerdict(t *testing.T) {
	t.Parallel()

	end := model.DefaultState()
	end.Rotation = 540
	h := &fakeHandle{result: run.Result{Status: model.StatusCompleted, Success: true, End: end}}
	m, _ := newModel(h, true)

	msg := waitDone(h)()
	next, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	final := next.(Model)
	res, ok := final.Result()
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Contains(t, final.View(), "challenge passed")
	assert.Contains(t, final.View(), "540.0°")
}

func TestModel_Verdicts(t *testing.T) {
	t.Parallel()

	assert.Contains(t, verdict(run.Result{Status: model.StatusCompleted}, false), "completed")
	assert.Contains(t, verdict(run.Result{Status: model.StatusCompleted}, true), "not passed")
	assert.Contains(t, verdict(run.Result{Status: model.StatusAborted}, true), "aborted")
	assert.Contains(t, verdict(run.Result{Status: model.StatusFailed, Fault: "division by zero"}, true), "division by zero")
}

func TestModel_QuitKeyCancelsOnce(t *testing.T) {
	t.Parallel()

	h := &fakeHandle{}
	m, _ := newModel(h, false)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.Equal(t, 1, h.cancelled)
	assert.Contains(t, next.View(), "stopping")
}
