// Package sim interprets robot commands as time-stepped motion of the shared
// robot state.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/metalagman/robolab/internal/history"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/robot"
	"github.com/metalagman/robolab/internal/world"
	"github.com/rs/zerolog/log"
)

// ErrAborted is returned by every suspending operation once the run it is
// bound to has been cancelled. It marks an expected, silent termination.
var ErrAborted = errors.New("simulation aborted")

const (
	// WheelCircumference is reported by Circumference, in centimetres.
	WheelCircumference = 3.77

	// UnitsPerCm converts script distances to world units.
	UnitsPerCm = 0.1

	moveMsPerCm   = 20.0
	turnMsPerDeg  = 10.0
	minSpeed      = 1
	maxSpeed      = 100
	defaultStep   = 16 * time.Millisecond
	defaultSettle = 50 * time.Millisecond
)

// Options configures a Robot.
type Options struct {
	Clock        Clock
	StepInterval time.Duration
	StopSettle   time.Duration
	Layout       world.Layout
}

// Robot is the capability object handed to a running program. It is bound to
// one cancellation signal: the context it was created with.
type Robot struct {
	ctx    context.Context
	store  *robot.Store
	hist   *history.Recorder
	clock  Clock
	layout world.Layout
	step   time.Duration
	settle time.Duration
}

// New binds a Robot to ctx, the state store and the run's history.
func New(ctx context.Context, store *robot.Store, hist *history.Recorder, opts Options) *Robot {
	if opts.Clock == nil {
		opts.Clock = WallClock{Scale: 1}
	}
	if opts.StepInterval <= 0 {
		opts.StepInterval = defaultStep
	}
	if opts.StopSettle <= 0 {
		opts.StopSettle = defaultSettle
	}
	return &Robot{
		ctx:    ctx,
		store:  store,
		hist:   hist,
		clock:  opts.Clock,
		layout: opts.Layout,
		step:   opts.StepInterval,
		settle: opts.StopSettle,
	}
}

// SetSpeed stores s clamped to [0, 100]. NaN leaves the speed unchanged, as
// does calling it after the run was aborted.
func (r *Robot) SetSpeed(s float64) {
	if math.IsNaN(s) || r.ctx.Err() != nil {
		return
	}
	speed := int(math.Round(math.Max(0, math.Min(maxSpeed, s))))
	r.store.Update(model.StateUpdate{Speed: &speed})
}

// Stop clears the moving flag and waits for the motors to settle.
func (r *Robot) Stop() error {
	if r.ctx.Err() != nil {
		return ErrAborted
	}
	r.store.Update(model.StateUpdate{IsMoving: model.Bool(false)})
	return r.sleep(r.settle)
}

// Move drives distanceCm along the current heading; negative drives backwards.
func (r *Robot) Move(distanceCm float64) error {
	if r.ctx.Err() != nil {
		return ErrAborted
	}
	start := r.store.Update(model.StateUpdate{IsMoving: model.Bool(true)})
	steps, each := r.plan(distanceCm, moveMsPerCm, start.Speed)
	sin, cos := heading(start.Rotation)
	total := distanceCm * UnitsPerCm
	log.Debug().Str("op", "move").Float64("cm", distanceCm).Int("steps", steps).Msg("robot op")

	for i := 1; i <= steps; i++ {
		if err := r.sleep(each); err != nil {
			return err
		}
		frac := float64(i) / float64(steps)
		nx := start.X + sin*total*frac
		nz := start.Z + cos*total*frac
		if !finite(nx) || !finite(nz) {
			// The pose is kept whole; y must not follow a rejected z.
			log.Debug().Str("op", "move").Float64("cm", distanceCm).Msg("non-finite pose skipped")
			continue
		}
		ny := r.layout.Height(nz)
		touching := world.Touch(nx, nz, start.Rotation, r.layout)
		next := r.store.Update(model.StateUpdate{X: &nx, Y: &ny, Z: &nz, IsTouching: &touching})
		r.hist.ObservePosition(next.X, next.Z)
	}
	r.store.Update(model.StateUpdate{IsMoving: model.Bool(false)})
	return nil
}

// Turn rotates by angleDeg in place; positive turns left.
func (r *Robot) Turn(angleDeg float64) error {
	if r.ctx.Err() != nil {
		return ErrAborted
	}
	start := r.store.Update(model.StateUpdate{IsMoving: model.Bool(true)})
	steps, each := r.plan(angleDeg, turnMsPerDeg, start.Speed)
	log.Debug().Str("op", "turn").Float64("deg", angleDeg).Int("steps", steps).Msg("robot op")
	defer r.hist.CommitTurn()

	for i := 1; i <= steps; i++ {
		if err := r.sleep(each); err != nil {
			return err
		}
		applied := angleDeg * float64(i) / float64(steps)
		nr := start.Rotation + applied
		touching := world.Touch(start.X, start.Z, nr, r.layout)
		r.store.Update(model.StateUpdate{Rotation: &nr, IsTouching: &touching})
		r.hist.TurnProgress(applied)
	}
	r.store.Update(model.StateUpdate{IsMoving: model.Bool(false)})
	return nil
}

// SetLed sets the indicator colour of side: left, right or both.
func (r *Robot) SetLed(side, color string) error {
	if r.ctx.Err() != nil {
		return ErrAborted
	}
	switch side {
	case model.SideLeft:
		r.store.Update(model.StateUpdate{LEDLeftColor: &color})
	case model.SideRight:
		r.store.Update(model.StateUpdate{LEDRightColor: &color})
	case model.SideBoth:
		r.store.Update(model.StateUpdate{LEDLeftColor: &color, LEDRightColor: &color})
	default:
		return fmt.Errorf("unknown led side %q", side)
	}
	return nil
}

// Wait suspends for ms milliseconds without touching the pose.
func (r *Robot) Wait(ms float64) error {
	if math.IsNaN(ms) || ms < 0 {
		ms = 0
	}
	return r.sleep(millis(ms))
}

// Readings returns the full sensor panel at the current pose.
func (r *Robot) Readings() world.Readings {
	s := r.store.Snapshot()
	return world.Sense(s.X, s.Z, s.Rotation, r.layout)
}

// Distance reads the ultrasonic sensor in centimetres, 255 when out of range.
func (r *Robot) Distance() int {
	s := r.store.Snapshot()
	return world.Distance(s.X, s.Z, s.Rotation, r.layout)
}

// Touch reads the bumper and records a hit in the run history.
func (r *Robot) Touch() bool {
	s := r.store.Snapshot()
	touching := world.Touch(s.X, s.Z, s.Rotation, r.layout)
	r.hist.ObserveTouch(touching)
	return touching
}

// Gyro reads the heading as round(rotation mod 360).
func (r *Robot) Gyro() int {
	return world.Gyro(r.store.Snapshot().Rotation)
}

// Color reads the colour sensor and records the colour in the run history.
func (r *Robot) Color() string {
	s := r.store.Snapshot()
	name, _, _ := world.Color(s.X, s.Z, s.Rotation, r.layout)
	r.hist.ObserveColor(name)
	return name
}

// IsTouchingColor compares the floor colour under the sensor with hex.
func (r *Robot) IsTouchingColor(hex string) bool {
	s := r.store.Snapshot()
	_, _, raw := world.Color(s.X, s.Z, s.Rotation, r.layout)
	return world.MatchesHex(raw, hex, r.layout.ColorTolerance)
}

// Circumference returns the wheel circumference in centimetres.
func (r *Robot) Circumference() float64 {
	return WheelCircumference
}

// plan splits an operation of the given magnitude into steps of roughly one
// step interval. Duration scales inversely with speed, floored at 1%.
func (r *Robot) plan(magnitude, msPerUnit float64, speed int) (int, time.Duration) {
	duration := math.Abs(magnitude) * msPerUnit * 100 / float64(max(minSpeed, speed))
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 1, 0
	}
	stepMs := float64(r.step) / float64(time.Millisecond)
	steps := int(math.Ceil(duration / stepMs))
	if steps < 1 {
		steps = 1
	}
	return steps, millis(duration / float64(steps))
}

// sleep checks for cancellation before suspending and maps any interruption
// to ErrAborted.
func (r *Robot) sleep(d time.Duration) error {
	if r.ctx.Err() != nil {
		return ErrAborted
	}
	if err := r.clock.Sleep(r.ctx, d); err != nil {
		return ErrAborted
	}
	return nil
}

func millis(ms float64) time.Duration {
	ns := ms * float64(time.Millisecond)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func heading(deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}
