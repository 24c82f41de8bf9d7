package script

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/metalagman/robolab/internal/sim"
	"github.com/rs/zerolog/log"
)

// ErrFault marks a runtime failure of the program itself: a type error,
// division by zero, a rejected command or an exhausted loop budget.
var ErrFault = errors.New("script fault")

// Robot is the command interface a program runs against.
type Robot interface {
	Move(distanceCm float64) error
	Turn(angleDeg float64) error
	Wait(ms float64) error
	SetSpeed(s float64)
	SetLed(side, color string) error
	Stop() error
	Distance() int
	Touch() bool
	Gyro() int
	Color() string
	IsTouchingColor(hex string) bool
	Circumference() float64
}

var _ Robot = (*sim.Robot)(nil)

// Limits bounds program execution. Zero means unlimited.
type Limits struct {
	MaxLoopIterations int
}

type interp struct {
	ctx        context.Context
	api        Robot
	limits     Limits
	iterations int
}

// Exec runs prog against api. Cancellation of ctx surfaces as sim.ErrAborted;
// program errors wrap ErrFault.
func Exec(ctx context.Context, api Robot, prog *Program, limits Limits) error {
	in := &interp{ctx: ctx, api: api, limits: limits}
	err := in.block(prog.Body)
	if err != nil && !errors.Is(err, sim.ErrAborted) && !errors.Is(err, ErrFault) {
		err = fmt.Errorf("%w: %v", ErrFault, err)
	}
	return err
}

func (in *interp) block(stmts []Stmt) error {
	for _, s := range stmts {
		if in.ctx.Err() != nil {
			return sim.ErrAborted
		}
		if err := in.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (in *interp) stmt(s Stmt) error {
	switch n := s.(type) {
	case MoveCmd:
		cm, err := in.num(n.Distance, "move")
		if err != nil {
			return err
		}
		return in.api.Move(cm)
	case TurnCmd:
		deg, err := in.num(n.Angle, "turn")
		if err != nil {
			return err
		}
		return in.api.Turn(deg)
	case WaitCmd:
		ms, err := in.num(n.Millis, "wait")
		if err != nil {
			return err
		}
		return in.api.Wait(ms)
	case SetSpeedCmd:
		speed, err := in.num(n.Speed, "speed")
		if err != nil {
			return err
		}
		in.api.SetSpeed(speed)
		return nil
	case SetLedCmd:
		v, err := in.eval(n.Color)
		if err != nil {
			return err
		}
		color, err := v.asStr("led color")
		if err != nil {
			return err
		}
		if err := in.api.SetLed(n.Side, color); err != nil {
			if errors.Is(err, sim.ErrAborted) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrFault, err)
		}
		return nil
	case StopCmd:
		return in.api.Stop()
	case RepeatNode:
		times, err := in.num(n.Times, "repeat")
		if err != nil {
			return err
		}
		if math.IsNaN(times) {
			times = 0
		}
		for i := 0; float64(i) < math.Floor(times); i++ {
			if err := in.tick(); err != nil {
				return err
			}
			if err := in.block(n.Body); err != nil {
				return err
			}
		}
		return nil
	case IfNode:
		ok, err := in.cond(n.Cond, "if")
		if err != nil {
			return err
		}
		if ok {
			return in.block(n.Then)
		}
		return in.block(n.Else)
	case WhileNode:
		for {
			ok, err := in.cond(n.Cond, "while")
			if err != nil {
				return err
			}
			if ok == n.Until {
				return nil
			}
			if err := in.tick(); err != nil {
				return err
			}
			if err := in.block(n.Body); err != nil {
				return err
			}
		}
	default:
		return faultf("unknown statement %T", s)
	}
}

// tick is the loop suspension check: it observes cancellation and charges
// one iteration against the budget.
func (in *interp) tick() error {
	if in.ctx.Err() != nil {
		return sim.ErrAborted
	}
	in.iterations++
	if in.limits.MaxLoopIterations > 0 && in.iterations > in.limits.MaxLoopIterations {
		log.Debug().Int("iterations", in.iterations).Msg("loop budget exhausted")
		return faultf("loop budget of %d iterations exhausted", in.limits.MaxLoopIterations)
	}
	return nil
}

func (in *interp) num(e Expr, what string) (float64, error) {
	v, err := in.eval(e)
	if err != nil {
		return 0, err
	}
	return v.asNum(what)
}

func (in *interp) cond(e Expr, what string) (bool, error) {
	v, err := in.eval(e)
	if err != nil {
		return false, err
	}
	return v.asBool(what + " condition")
}

func (in *interp) eval(e Expr) (Value, error) {
	switch x := e.(type) {
	case Num:
		return NumVal(x.V), nil
	case Bool:
		return BoolVal(x.V), nil
	case Str:
		return StrVal(x.V), nil
	case SensorExpr:
		return in.sensor(x.Name)
	case TouchingColorExpr:
		return BoolVal(in.api.IsTouchingColor(x.Hex)), nil
	case NotExpr:
		v, err := in.eval(x.X)
		if err != nil {
			return Value{}, err
		}
		b, err := v.asBool("not")
		if err != nil {
			return Value{}, err
		}
		return BoolVal(!b), nil
	case BinaryExpr:
		return in.binary(x)
	default:
		return Value{}, faultf("unknown expression %T", e)
	}
}

func (in *interp) sensor(name string) (Value, error) {
	switch name {
	case SensorDistance:
		return NumVal(float64(in.api.Distance())), nil
	case SensorTouch:
		return BoolVal(in.api.Touch()), nil
	case SensorGyro:
		return NumVal(float64(in.api.Gyro())), nil
	case SensorColor:
		return StrVal(in.api.Color()), nil
	case SensorCircumference:
		return NumVal(in.api.Circumference()), nil
	default:
		return Value{}, faultf("unknown sensor %q", name)
	}
}

func (in *interp) binary(x BinaryExpr) (Value, error) {
	left, err := in.eval(x.Left)
	if err != nil {
		return Value{}, err
	}
	// Logic operators short-circuit.
	switch x.Op {
	case OpAnd, OpOr:
		l, err := left.asBool(x.Op)
		if err != nil {
			return Value{}, err
		}
		if (x.Op == OpAnd && !l) || (x.Op == OpOr && l) {
			return BoolVal(l), nil
		}
		right, err := in.eval(x.Right)
		if err != nil {
			return Value{}, err
		}
		r, err := right.asBool(x.Op)
		if err != nil {
			return Value{}, err
		}
		return BoolVal(r), nil
	}

	right, err := in.eval(x.Right)
	if err != nil {
		return Value{}, err
	}
	switch x.Op {
	case OpEq:
		return BoolVal(left.Equal(right)), nil
	case OpNe:
		return BoolVal(!left.Equal(right)), nil
	}

	l, err := left.asNum(x.Op)
	if err != nil {
		return Value{}, err
	}
	r, err := right.asNum(x.Op)
	if err != nil {
		return Value{}, err
	}
	switch x.Op {
	case OpAdd:
		return NumVal(l + r), nil
	case OpSub:
		return NumVal(l - r), nil
	case OpMul:
		return NumVal(l * r), nil
	case OpDiv:
		if r == 0 {
			return Value{}, faultf("division by zero")
		}
		return NumVal(l / r), nil
	case OpMod:
		if r == 0 {
			return Value{}, faultf("modulo by zero")
		}
		return NumVal(math.Mod(l, r)), nil
	case OpLt:
		return BoolVal(l < r), nil
	case OpLe:
		return BoolVal(l <= r), nil
	case OpGt:
		return BoolVal(l > r), nil
	case OpGe:
		return BoolVal(l >= r), nil
	default:
		return Value{}, faultf("unknown operator %q", x.Op)
	}
}
