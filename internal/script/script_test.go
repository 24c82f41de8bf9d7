package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/metalagman/robolab/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRobot struct {
	calls    []string
	distance int
	touching bool
	gyro     int
	color    string
	moveErr  error
}

func (f *fakeRobot) Move(cm float64) error {
	f.calls = append(f.calls, fmt.Sprintf("move %g", cm))
	f.distance -= 10
	return f.moveErr
}

func (f *fakeRobot) Turn(deg float64) error {
	f.calls = append(f.calls, fmt.Sprintf("turn %g", deg))
	return nil
}

func (f *fakeRobot) Wait(ms float64) error {
	f.calls = append(f.calls, fmt.Sprintf("wait %g", ms))
	return nil
}

func (f *fakeRobot) SetSpeed(s float64) {
	f.calls = append(f.calls, fmt.Sprintf("speed %g", s))
}

func (f *fakeRobot) SetLed(side, color string) error {
	if side != "left" && side != "right" && side != "both" {
		return errors.New("unknown led side")
	}
	f.calls = append(f.calls, fmt.Sprintf("led %s %s", side, color))
	return nil
}

func (f *fakeRobot) Stop() error {
	f.calls = append(f.calls, "stop")
	return nil
}

func (f *fakeRobot) Distance() int                   { return f.distance }
func (f *fakeRobot) Touch() bool                     { return f.touching }
func (f *fakeRobot) Gyro() int                       { return f.gyro }
func (f *fakeRobot) Color() string                   { return f.color }
func (f *fakeRobot) IsTouchingColor(hex string) bool { return hex == "#FF0000" }
func (f *fakeRobot) Circumference() float64          { return 3.77 }

const squareProgram = `
name: square
challenge: c2
program:
  - led: {side: both, color: green}
  - repeat:
      times: 4
      do:
        - move: 10
        - turn: {angle: 90, direction: right}
  - wait: {seconds: 0.5}
  - led_off: left
  - stop
`

func TestParse_CompilesStatements(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(squareProgram))
	require.NoError(t, err)
	assert.Equal(t, "square", prog.Name)
	assert.Equal(t, "c2", prog.Challenge)
	require.Len(t, prog.Body, 5)

	assert.Equal(t, SetLedCmd{Side: "both", Color: Str{V: "green"}}, prog.Body[0])
	rep, ok := prog.Body[1].(RepeatNode)
	require.True(t, ok)
	assert.Equal(t, Num{V: 4}, rep.Times)
	assert.Equal(t, []Stmt{MoveCmd{Distance: Num{V: 10}}, TurnCmd{Angle: Num{V: -90}}}, rep.Body)
	assert.Equal(t, SetLedCmd{Side: "left", Color: Str{V: "black"}}, prog.Body[3])
	assert.Equal(t, StopCmd{}, prog.Body[4])
}

func TestParse_AcceptsJSON(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(`{"program": [{"move": {"distance": 5, "direction": "backward", "speed": 40}}, {"stop": null}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Stmt{
		SetSpeedCmd{Speed: Num{V: 40}},
		MoveCmd{Distance: Num{V: -5}},
		StopCmd{},
	}, prog.Body)
}

func TestParse_DriveUntilExpandsToLoop(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(`
program:
  - drive_until:
      speed: 50
      cond: {op: "<", left: {sensor: distance}, right: 20}
`))
	require.NoError(t, err)
	require.Len(t, prog.Body, 2)
	assert.Equal(t, SetSpeedCmd{Speed: Num{V: 50}}, prog.Body[0])
	assert.Equal(t, WhileNode{
		Cond:  BinaryExpr{Op: OpLt, Left: SensorExpr{Name: SensorDistance}, Right: Num{V: 20}},
		Until: true,
		Body:  []Stmt{MoveCmd{Distance: Num{V: 0.2}}},
	}, prog.Body[1])
}

func TestParse_RejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":           ``,
		"no program":      `name: x`,
		"unknown command": `program: [{jump: 3}]`,
		"two keys":        `program: [{move: 1, turn: 2}]`,
		"bad sensor":      `program: [{move: {sensor: lidar}}]`,
		"bad hex":         `program: [{if: {cond: {touching_color: "#zz0000"}, then: []}}]`,
		"bad side":        `program: [{led: {side: middle, color: red}}]`,
		"bad operator":    `program: [{move: {op: "^", left: 1, right: 2}}]`,
		"malformed yaml":  `program: [move: 1`,
	}
	for name, doc := range tests {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(squareProgram), 0o600))
	prog, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "square", prog.Name)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExec_RunsCommandsInOrder(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(squareProgram))
	require.NoError(t, err)
	robot := &fakeRobot{}
	require.NoError(t, Exec(context.Background(), robot, prog, Limits{}))

	assert.Equal(t, []string{
		"led both green",
		"move 10", "turn -90",
		"move 10", "turn -90",
		"move 10", "turn -90",
		"move 10", "turn -90",
		"wait 500",
		"led left black",
		"stop",
	}, robot.calls)
}

func TestExec_DriveUntilStopsOnCondition(t *testing.T) {
	t.Parallel()

	prog, err := Parse([]byte(`
program:
  - drive_until:
      direction: backward
      cond: {op: "<=", left: {sensor: distance}, right: 20}
  - if:
      cond: {op: "and", left: {touching_color: "#FF0000"}, right: {not: {sensor: touch}}}
      then: [{turn: 45}]
      else: [{turn: -45}]
`))
	require.NoError(t, err)
	robot := &fakeRobot{distance: 50}
	require.NoError(t, Exec(context.Background(), robot, prog, Limits{}))

	assert.Equal(t, []string{"move -0.2", "move -0.2", "move -0.2", "turn 45"}, robot.calls)
}

func TestExec_Expressions(t *testing.T) {
	t.Parallel()

	robot := &fakeRobot{gyro: -90, color: "red"}
	in := &interp{ctx: context.Background(), api: robot}
	tests := []struct {
		name string
		expr Expr
		want Value
	}{
		{name: "add", expr: BinaryExpr{Op: OpAdd, Left: Num{V: 2}, Right: Num{V: 3}}, want: NumVal(5)},
		{name: "mod keeps sign", expr: BinaryExpr{Op: OpMod, Left: SensorExpr{Name: SensorGyro}, Right: Num{V: 360}}, want: NumVal(-90)},
		{name: "circumference", expr: BinaryExpr{Op: OpMul, Left: SensorExpr{Name: SensorCircumference}, Right: Num{V: 2}}, want: NumVal(7.54)},
		{name: "color equality", expr: BinaryExpr{Op: OpEq, Left: SensorExpr{Name: SensorColor}, Right: Str{V: "red"}}, want: BoolVal(true)},
		{name: "mixed kinds differ", expr: BinaryExpr{Op: OpNe, Left: Num{V: 1}, Right: Str{V: "1"}}, want: BoolVal(true)},
		{name: "or short-circuits", expr: BinaryExpr{Op: OpOr, Left: Bool{V: true}, Right: Num{V: 1}}, want: BoolVal(true)},
		{name: "not", expr: NotExpr{X: Bool{V: false}}, want: BoolVal(true)},
	}
	for _, tt := range tests {
		got, err := in.eval(tt.expr)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestExec_Faults(t *testing.T) {
	t.Parallel()

	tests := map[string][]Stmt{
		"move wants number": {MoveCmd{Distance: Str{V: "far"}}},
		"division by zero":  {MoveCmd{Distance: BinaryExpr{Op: OpDiv, Left: Num{V: 1}, Right: Num{V: 0}}}},
		"if wants boolean":  {IfNode{Cond: Num{V: 1}}},
		"unknown led side":  {SetLedCmd{Side: "middle", Color: Str{V: "red"}}},
		"unknown sensor":    {MoveCmd{Distance: SensorExpr{Name: "lidar"}}},
		"loop budget":       {WhileNode{Cond: Bool{V: true}}},
	}
	for name, body := range tests {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := Exec(context.Background(), &fakeRobot{}, &Program{Body: body}, Limits{MaxLoopIterations: 100})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFault)
			assert.NotErrorIs(t, err, sim.ErrAborted)
		})
	}
}

func TestExec_RepeatCountIsFloored(t *testing.T) {
	t.Parallel()

	robot := &fakeRobot{}
	body := []Stmt{
		RepeatNode{Times: Num{V: 2.9}, Body: []Stmt{StopCmd{}}},
		RepeatNode{Times: Num{V: -1}, Body: []Stmt{StopCmd{}}},
	}
	require.NoError(t, Exec(context.Background(), robot, &Program{Body: body}, Limits{}))
	assert.Equal(t, []string{"stop", "stop"}, robot.calls)
}

func TestExec_Aborted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	robot := &fakeRobot{}
	err := Exec(ctx, robot, &Program{Body: []Stmt{StopCmd{}}}, Limits{})
	assert.ErrorIs(t, err, sim.ErrAborted)
	assert.Empty(t, robot.calls)

	robot = &fakeRobot{moveErr: sim.ErrAborted}
	err = Exec(context.Background(), robot, &Program{Body: []Stmt{MoveCmd{Distance: Num{V: 1}}, StopCmd{}}}, Limits{})
	assert.ErrorIs(t, err, sim.ErrAborted)
	assert.NotErrorIs(t, err, ErrFault)
	assert.Equal(t, []string{"move 1"}, robot.calls)
}
