// Package model holds the data types shared by the simulator packages.
package model

// LED sides accepted by SetLed.
const (
	SideLeft  = "left"
	SideRight = "right"
	SideBoth  = "both"
)

// LEDOff is the colour token of a switched-off indicator.
const LEDOff = "black"

// Pose is a planar position plus heading in degrees.
type Pose struct {
	X       float64 `json:"x"       yaml:"x"`
	Y       float64 `json:"y"       yaml:"y"`
	Z       float64 `json:"z"       yaml:"z"`
	Heading float64 `json:"heading" yaml:"heading"`
}

// RobotState is the single mutable record of the simulated robot.
type RobotState struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Z             float64 `json:"z"`
	Rotation      float64 `json:"rotation"`
	Speed         int     `json:"speed"`
	LEDLeftColor  string  `json:"led_left_color"`
	LEDRightColor string  `json:"led_right_color"`
	IsMoving      bool    `json:"is_moving"`
	IsTouching    bool    `json:"is_touching"`
}

// DefaultState is the global spawn state used when no scenario overrides it.
func DefaultState() RobotState {
	return RobotState{
		Rotation:      180,
		Speed:         100,
		LEDLeftColor:  LEDOff,
		LEDRightColor: LEDOff,
	}
}

// WithPose returns a copy of the state moved to p.
func (s RobotState) WithPose(p Pose) RobotState {
	s.X, s.Y, s.Z, s.Rotation = p.X, p.Y, p.Z, p.Heading
	return s
}

// StateUpdate is a partial state; nil fields are left untouched on merge.
type StateUpdate struct {
	X             *float64
	Y             *float64
	Z             *float64
	Rotation      *float64
	Speed         *int
	LEDLeftColor  *string
	LEDRightColor *string
	IsMoving      *bool
	IsTouching    *bool
}

// Float returns a pointer to v, for building StateUpdate literals.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// RunState is the coordinator state machine position.
type RunState string

const (
	RunIdle    RunState = "idle"
	RunRunning RunState = "running"
	RunAborted RunState = "aborted"
)

// RunStatus is the terminal status of a finished run.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusAborted   RunStatus = "aborted"
	StatusFailed    RunStatus = "failed"
)
