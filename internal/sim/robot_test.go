package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/metalagman/robolab/internal/history"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/robot"
	"github.com/metalagman/robolab/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRobot(t *testing.T, initial model.RobotState, layout world.Layout) (*Robot, *robot.Store, *history.Recorder) {
	t.Helper()
	store := robot.NewStore(initial)
	hist := history.NewRecorder()
	hist.Begin(initial.X, initial.Z)
	r := New(context.Background(), store, hist, Options{Clock: WallClock{}, Layout: layout})
	return r, store, hist
}

func TestRobot_MoveFollowsHeading(t *testing.T) {
	t.Parallel()

	r, store, hist := newTestRobot(t, model.DefaultState(), world.Layout{})
	require.NoError(t, r.Move(10))

	s := store.Snapshot()
	assert.InDelta(t, 0, s.X, 1e-9)
	assert.InDelta(t, -1, s.Z, 1e-9)
	assert.False(t, s.IsMoving)
	assert.InDelta(t, 1, hist.Snapshot().MaxDistanceMoved, 1e-9)

	require.NoError(t, r.Move(-10))
	s = store.Snapshot()
	assert.InDelta(t, 0, s.Z, 1e-9)
	assert.InDelta(t, 1, hist.Snapshot().MaxDistanceMoved, 1e-9)
}

func TestRobot_TurnFullCircle(t *testing.T) {
	t.Parallel()

	r, store, hist := newTestRobot(t, model.DefaultState(), world.Layout{})
	require.NoError(t, r.Turn(360))

	assert.Equal(t, 540.0, store.Snapshot().Rotation)
	assert.Equal(t, 180, r.Gyro())
	assert.Equal(t, 360.0, hist.Snapshot().TotalRotation)

	require.NoError(t, r.Turn(-90))
	assert.Equal(t, 450.0, store.Snapshot().Rotation)
	assert.Equal(t, 90, r.Gyro())
	assert.Equal(t, 270.0, hist.Snapshot().TotalRotation)
}

func TestRobot_NonFiniteMoveLeavesPose(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRobot(t, model.DefaultState(), world.Layout{})
	require.NoError(t, r.Move(math.NaN()))
	require.NoError(t, r.Turn(math.Inf(1)))

	s := store.Snapshot()
	assert.Equal(t, 0.0, s.X)
	assert.Equal(t, 0.0, s.Z)
	assert.Equal(t, 180.0, s.Rotation)
	assert.False(t, s.IsMoving)
}

func TestRobot_NonFiniteMoveOnRampKeepsHeight(t *testing.T) {
	t.Parallel()

	r, store, hist := newTestRobot(t, model.DefaultState(), world.LayoutFor("c3"))
	require.NoError(t, r.Move(math.Inf(1)))
	huge := 1e308
	require.NoError(t, r.Move(huge*10))

	s := store.Snapshot()
	assert.Equal(t, 0.0, s.X)
	assert.Equal(t, 0.0, s.Y)
	assert.Equal(t, 0.0, s.Z)
	assert.False(t, s.IsMoving)
	assert.Equal(t, 0.0, hist.Snapshot().MaxDistanceMoved)
}

func TestRobot_TurnsAccumulateExactly(t *testing.T) {
	t.Parallel()

	r, store, hist := newTestRobot(t, model.DefaultState(), world.Layout{})
	require.NoError(t, r.Turn(90))
	require.NoError(t, r.Turn(-30))

	assert.Equal(t, 60.0, hist.Snapshot().TotalRotation)
	assert.Equal(t, 240.0, store.Snapshot().Rotation)
	assert.Equal(t, 240, r.Gyro())
}

func TestRobot_PlanScalesWithSpeed(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRobot(t, model.DefaultState(), world.Layout{})

	steps, each := r.plan(10, moveMsPerCm, 100)
	assert.Equal(t, 13, steps)
	assert.InDelta(t, float64(200*time.Millisecond)/13, float64(each), 1)

	steps, _ = r.plan(10, moveMsPerCm, 50)
	assert.Equal(t, 25, steps)

	steps, _ = r.plan(1, moveMsPerCm, 0)
	assert.Equal(t, 125, steps)

	steps, each = r.plan(0, turnMsPerDeg, 100)
	assert.Equal(t, 1, steps)
	assert.Zero(t, each)
}

func TestRobot_SetSpeedClamps(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRobot(t, model.DefaultState(), world.Layout{})
	tests := []struct {
		in   float64
		want int
	}{
		{in: 150, want: 100},
		{in: -5, want: 0},
		{in: 33.6, want: 34},
		{in: math.NaN(), want: 34},
	}
	for _, tt := range tests {
		r.SetSpeed(tt.in)
		assert.Equal(t, tt.want, store.Snapshot().Speed, "input %v", tt.in)
	}
}

func TestRobot_SetLed(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRobot(t, model.DefaultState(), world.Layout{})
	require.NoError(t, r.SetLed(model.SideLeft, "red"))
	require.NoError(t, r.SetLed(model.SideRight, "green"))
	s := store.Snapshot()
	assert.Equal(t, "red", s.LEDLeftColor)
	assert.Equal(t, "green", s.LEDRightColor)

	require.NoError(t, r.SetLed(model.SideBoth, "blue"))
	s = store.Snapshot()
	assert.Equal(t, "blue", s.LEDLeftColor)
	assert.Equal(t, "blue", s.LEDRightColor)

	assert.Error(t, r.SetLed("middle", "red"))
}

func TestRobot_TouchRecordsHistory(t *testing.T) {
	t.Parallel()

	start := model.DefaultState()
	start.Z = -6.4
	r, _, hist := newTestRobot(t, start, world.LayoutFor("c9"))

	assert.True(t, r.Touch())
	assert.True(t, hist.Snapshot().TouchedWall)
}

func TestRobot_MoveIntoWallSetsTouching(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRobot(t, model.DefaultState(), world.LayoutFor("c9"))
	assert.Equal(t, 70, r.Distance())
	require.NoError(t, r.Move(64))

	assert.True(t, store.Snapshot().IsTouching)
}

func TestRobot_ColorSensor(t *testing.T) {
	t.Parallel()

	start := model.DefaultState()
	start.X, start.Z = 2.5, -2.2
	r, _, hist := newTestRobot(t, start, world.LayoutFor("c13"))

	assert.Equal(t, "blue", r.Color())
	assert.True(t, r.IsTouchingColor("#0000ff"))
	assert.True(t, r.IsTouchingColor("#0000FF"))
	assert.False(t, r.IsTouchingColor("#ff0000"))
	assert.Equal(t, []string{"blue"}, hist.Snapshot().DetectedColors)
	assert.Equal(t, world.IntensityColor, r.Readings().Intensity)
}

func TestRobot_WaitAndCircumference(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRobot(t, model.DefaultState(), world.Layout{})
	before := store.Snapshot()
	require.NoError(t, r.Wait(-10))
	require.NoError(t, r.Wait(math.NaN()))
	require.NoError(t, r.Wait(100))
	require.NoError(t, r.Stop())

	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, 3.77, r.Circumference())
}

func TestRobot_AbortStopsWrites(t *testing.T) {
	t.Parallel()

	clock := NewManualClock()
	store := robot.NewStore(model.DefaultState())
	hist := history.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, store, hist, Options{Clock: clock})

	done := make(chan error, 1)
	go func() { done <- r.Move(10) }()

	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	require.NoError(t, clock.WaitForSleepers(wctx, 1))
	clock.Advance(16 * time.Millisecond)
	require.NoError(t, clock.WaitForSleepers(wctx, 1))

	mid := store.Snapshot()
	assert.InDelta(t, -1.0/13, mid.Z, 1e-9)
	assert.True(t, mid.IsMoving)

	cancel()
	require.ErrorIs(t, <-done, ErrAborted)
	clock.Advance(time.Second)

	assert.Equal(t, mid, store.Snapshot())
	assert.ErrorIs(t, r.Wait(10), ErrAborted)
	assert.ErrorIs(t, r.Turn(10), ErrAborted)
	assert.ErrorIs(t, r.SetLed(model.SideLeft, "red"), ErrAborted)
	assert.Equal(t, mid, store.Snapshot())
}
