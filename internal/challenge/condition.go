package challenge

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/metalagman/robolab/internal/history"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/world"
)

// Predicate decides whether a finished run solved a scenario.
type Predicate func(start, end model.RobotState, h history.Snapshot) bool

// Metrics readable by a metric condition.
const (
	MetricMaxDistance      = "max_distance_moved"
	MetricTotalRotation    = "total_rotation"
	MetricAbsTotalRotation = "abs_total_rotation"
	MetricDisplacement     = "displacement"
	MetricEndGyro          = "end_gyro"
)

// LED sides readable by an LED condition, in addition to model.SideLeft and
// model.SideRight.
const (
	LEDAny  = "any"
	LEDBoth = "both"
)

// Condition is the declarative form of a Predicate. Exactly one of its
// groups must be set: a combinator (All, Any, Not), a metric comparison, or
// one of the flag checks.
type Condition struct {
	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`

	Metric string   `yaml:"metric,omitempty" json:"metric,omitempty"`
	GT     *float64 `yaml:"gt,omitempty"     json:"gt,omitempty"`
	GTE    *float64 `yaml:"gte,omitempty"    json:"gte,omitempty"`
	LT     *float64 `yaml:"lt,omitempty"     json:"lt,omitempty"`
	LTE    *float64 `yaml:"lte,omitempty"    json:"lte,omitempty"`

	TouchedWall *bool     `yaml:"touched_wall,omitempty" json:"touched_wall,omitempty"`
	Detected    string    `yaml:"detected,omitempty"     json:"detected,omitempty"`
	Moving      *bool     `yaml:"moving,omitempty"       json:"moving,omitempty"`
	LED         *LEDCheck `yaml:"led,omitempty"          json:"led,omitempty"`
}

// LEDCheck compares the end state of the indicators with a colour. Is and
// Not are mutually exclusive.
type LEDCheck struct {
	Side string `yaml:"side" json:"side"`
	Is   string `yaml:"is,omitempty"  json:"is,omitempty"`
	Not  string `yaml:"not,omitempty" json:"not,omitempty"`
}

var errEmptyCondition = errors.New("empty condition")

// Compile turns c into a Predicate.
func (c Condition) Compile() (Predicate, error) {
	var preds []Predicate
	add := func(p Predicate, err error) error {
		if err != nil {
			return err
		}
		preds = append(preds, p)
		return nil
	}

	if len(c.All) > 0 {
		if err := add(compileAll(c.All)); err != nil {
			return nil, err
		}
	}
	if len(c.Any) > 0 {
		if err := add(compileAny(c.Any)); err != nil {
			return nil, err
		}
	}
	if c.Not != nil {
		inner, err := c.Not.Compile()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		preds = append(preds, func(s, e model.RobotState, h history.Snapshot) bool { return !inner(s, e, h) })
	}
	if c.Metric != "" {
		if err := add(c.compileMetric()); err != nil {
			return nil, err
		}
	}
	if c.TouchedWall != nil {
		want := *c.TouchedWall
		preds = append(preds, func(_, _ model.RobotState, h history.Snapshot) bool { return h.TouchedWall == want })
	}
	if c.Detected != "" {
		name := world.NormalizeColor(c.Detected)
		preds = append(preds, func(_, _ model.RobotState, h history.Snapshot) bool { return h.HasColor(name) })
	}
	if c.Moving != nil {
		want := *c.Moving
		preds = append(preds, func(_, e model.RobotState, _ history.Snapshot) bool { return e.IsMoving == want })
	}
	if c.LED != nil {
		if err := add(c.LED.compile()); err != nil {
			return nil, err
		}
	}

	switch len(preds) {
	case 0:
		return nil, errEmptyCondition
	case 1:
		return preds[0], nil
	default:
		return nil, errors.New("condition mixes several checks; wrap them in all or any")
	}
}

func compileAll(conds []Condition) (Predicate, error) {
	preds, err := compileList(conds, "all")
	if err != nil {
		return nil, err
	}
	return func(s, e model.RobotState, h history.Snapshot) bool {
		for _, p := range preds {
			if !p(s, e, h) {
				return false
			}
		}
		return true
	}, nil
}

func compileAny(conds []Condition) (Predicate, error) {
	preds, err := compileList(conds, "any")
	if err != nil {
		return nil, err
	}
	return func(s, e model.RobotState, h history.Snapshot) bool {
		for _, p := range preds {
			if p(s, e, h) {
				return true
			}
		}
		return false
	}, nil
}

func compileList(conds []Condition, name string) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(conds))
	for i, c := range conds {
		p, err := c.Compile()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func (c Condition) compileMetric() (Predicate, error) {
	metric, err := metricFunc(c.Metric)
	if err != nil {
		return nil, err
	}
	if c.GT == nil && c.GTE == nil && c.LT == nil && c.LTE == nil {
		return nil, fmt.Errorf("metric %s: no bound given", c.Metric)
	}
	gt, gte, lt, lte := c.GT, c.GTE, c.LT, c.LTE
	return func(s, e model.RobotState, h history.Snapshot) bool {
		v := metric(s, e, h)
		switch {
		case gt != nil && !(v > *gt):
			return false
		case gte != nil && !(v >= *gte):
			return false
		case lt != nil && !(v < *lt):
			return false
		case lte != nil && !(v <= *lte):
			return false
		}
		return true
	}, nil
}

func metricFunc(name string) (func(s, e model.RobotState, h history.Snapshot) float64, error) {
	switch name {
	case MetricMaxDistance:
		return func(_, _ model.RobotState, h history.Snapshot) float64 { return h.MaxDistanceMoved }, nil
	case MetricTotalRotation:
		return func(_, _ model.RobotState, h history.Snapshot) float64 { return h.TotalRotation }, nil
	case MetricAbsTotalRotation:
		return func(_, _ model.RobotState, h history.Snapshot) float64 { return math.Abs(h.TotalRotation) }, nil
	case MetricDisplacement:
		return func(s, e model.RobotState, _ history.Snapshot) float64 { return math.Hypot(e.X-s.X, e.Z-s.Z) }, nil
	case MetricEndGyro:
		return func(_, e model.RobotState, _ history.Snapshot) float64 { return float64(world.Gyro(e.Rotation)) }, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}

func (l LEDCheck) compile() (Predicate, error) {
	if (l.Is == "") == (l.Not == "") {
		return nil, errors.New("led: exactly one of is and not must be set")
	}
	want, negate := world.NormalizeColor(l.Is), false
	if l.Not != "" {
		want, negate = world.NormalizeColor(l.Not), true
	}
	match := func(color string) bool {
		return (world.NormalizeColor(color) == want) != negate
	}

	switch strings.ToLower(l.Side) {
	case model.SideLeft:
		return func(_, e model.RobotState, _ history.Snapshot) bool { return match(e.LEDLeftColor) }, nil
	case model.SideRight:
		return func(_, e model.RobotState, _ history.Snapshot) bool { return match(e.LEDRightColor) }, nil
	case LEDAny, "":
		return func(_, e model.RobotState, _ history.Snapshot) bool {
			return match(e.LEDLeftColor) || match(e.LEDRightColor)
		}, nil
	case LEDBoth:
		return func(_, e model.RobotState, _ history.Snapshot) bool {
			return match(e.LEDLeftColor) && match(e.LEDRightColor)
		}, nil
	default:
		return nil, fmt.Errorf("led: unknown side %q", l.Side)
	}
}
